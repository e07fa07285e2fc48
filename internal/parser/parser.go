package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/model"
)

const unknownBrand = "Unknown Brand"

// brandIDMap maps GyFTR logo IDs to brand names. Used as a fallback when
// neither the brand label nor the image alt text is present.
var brandIDMap = map[string]string{
	"344": "Swiggy Money Voucher",
	"72":  "Myntra",
	"510": "Amazon Shopping Voucher",
	"22":  "Flipkart Gift Card",
	"14":  "Dominos Pizza",
	"19":  "Baskin Robbins",
	"25":  "KFC",
	"26":  "Pizza Hut",
	"1669891154334_1canbt2f4olb4y2t26": "Amazon Pay Gift Card",
}

// fieldMapping normalizes the label phrasings seen across vendor email
// templates onto canonical sheet column names. "Code" is the master key
// for every code variant.
var fieldMapping = map[string]string{
	"Promo Code":               model.ColCode,
	"Daily Objects Promo Code": model.ColCode,
	"Gift Voucher Code":        model.ColCode,
	"E-Voucher Code":           model.ColCode,
	"Gift Card Code":           model.ColCode,
	"Voucher Code":             model.ColCode,
	"E-Gift Card Code":         model.ColCode,

	"Gift Voucher Value": model.ColValue,
	"Voucher Value":      model.ColValue,
	"Gift Card Value":    model.ColValue,

	"Gift Voucher Pin": model.ColPin,
	"Voucher Pin":      model.ColPin,
	"Gift Card Pin":    model.ColPin,
	"PIN":              model.ColPin,
	"Pin":              model.ColPin,

	"Valid Until":     model.ColExpiry,
	"Expiry Date":     model.ColExpiry,
	"Expiration Date": model.ColExpiry,
	"Valid Till":      model.ColExpiry,
}

var (
	logoIDPattern    = regexp.MustCompile(`/logo/(\d+)\.png`)
	brandFilePattern = regexp.MustCompile(`/brands/([^/]+)\.png`)
)

// ExtractVouchers extracts voucher records from GyFTR email HTML. It never
// fails past its own boundary: malformed or empty input yields an empty
// slice with a diagnostic logged.
func ExtractVouchers(html string) (vouchers []*model.Voucher) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Voucher parser panic: %v", r)
			vouchers = nil
		}
	}()

	if html == "" {
		logrus.Warn("Empty HTML content passed to voucher parser")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logrus.Errorf("Failed to parse voucher HTML: %v", err)
		return nil
	}

	// The brand logo sits in a narrow fixed-width <td>; the voucher details
	// live in the next sibling <td>. Inside the details cell, small-font
	// divs are field labels and the following sibling div holds the value.
	doc.Find(`td[width="100px"]`).Each(func(_ int, brandCell *goquery.Selection) {
		brandName, logoURL := resolveBrand(brandCell)
		if brandName == "" {
			return
		}

		detailsCell := brandCell.NextAllFiltered("td").First()
		if detailsCell.Length() == 0 {
			logrus.Warnf("Found brand %q but no details cell next to it", brandName)
			return
		}

		voucher := &model.Voucher{Brand: brandName}
		if logoURL != "" {
			voucher.Logo = fmt.Sprintf("=IMAGE(%q)", logoURL)
		}

		foundField := false
		detailsCell.Find("div").Each(func(_ int, div *goquery.Selection) {
			style := strings.ToLower(div.AttrOr("style", ""))
			if !strings.Contains(style, "font-size: 11px") && !strings.Contains(style, "font-size:11px") {
				return
			}

			text := strings.TrimSpace(div.Text())
			if text == "" {
				return
			}
			key := strings.TrimSpace(strings.ReplaceAll(text, ":", ""))
			if canonical, ok := fieldMapping[key]; ok {
				key = canonical
			}

			valueDiv := div.NextAllFiltered("div").First()
			if valueDiv.Length() == 0 {
				return
			}

			voucher.Set(key, strings.TrimSpace(valueDiv.Text()))
			foundField = true
		})

		if foundField {
			vouchers = append(vouchers, voucher)
		} else if brandName != unknownBrand {
			logrus.Warnf("Found brand %q but no details could be extracted, check HTML layout", brandName)
		}
	})

	return vouchers
}

// resolveBrand identifies the brand for a logo cell and returns the brand
// name and logo URL. The fallback order is load-bearing: centered text
// label, image alt text, logo-URL ID lookup, brand-file lookup, then a
// placeholder naming the raw identifier.
func resolveBrand(brandCell *goquery.Selection) (string, string) {
	brandName := unknownBrand
	logoURL := ""

	img := brandCell.Find("img").First()
	if img.Length() > 0 {
		logoURL = img.AttrOr("src", "")
	}

	brandDiv := brandCell.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.AttrOr("style", ""), "text-align:center")
	}).First()

	if brandDiv.Length() > 0 && strings.TrimSpace(brandDiv.Text()) != "" {
		brandName = strings.TrimSpace(brandDiv.Text())
	} else if img.Length() > 0 && img.AttrOr("alt", "") != "" {
		brandName = img.AttrOr("alt", "")
	}

	if brandName == unknownBrand && logoURL != "" {
		if m := logoIDPattern.FindStringSubmatch(logoURL); m != nil {
			if name, ok := brandIDMap[m[1]]; ok {
				brandName = name
			} else {
				brandName = fmt.Sprintf("Unknown Brand (ID: %s)", m[1])
			}
		}

		if brandName == unknownBrand {
			if m := brandFilePattern.FindStringSubmatch(logoURL); m != nil {
				if name, ok := brandIDMap[m[1]]; ok {
					brandName = name
				} else {
					brandName = fmt.Sprintf("Unknown Brand (%s)", m[1])
				}
			}
		}
	}

	return brandName, logoURL
}
