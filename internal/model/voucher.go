package model

// Canonical sheet column names. Incoming email labels and legacy sheet
// headers are normalized onto these before any comparison or write.
const (
	ColLogo      = "Logo"
	ColBrand     = "Brand"
	ColValue     = "Value"
	ColCode      = "Code"
	ColPin       = "Pin"
	ColExpiry    = "Expiry"
	ColEmailDate = "Email Date"
	ColMessageID = "Message ID"
	ColAddedBy   = "Added By"
	ColCreatedAt = "Created At"
)

// legacyColumns maps header names left behind by older sheet layouts to
// their canonical names.
var legacyColumns = map[string]string{
	"E-Gift Card Code": ColCode,
	"PIN":              ColPin,
	"Valid Till":       ColExpiry,
}

// CanonicalColumn resolves a sheet header name to its canonical form.
func CanonicalColumn(name string) string {
	if canonical, ok := legacyColumns[name]; ok {
		return canonical
	}
	return name
}

// DefaultHeader returns the header row written to an empty sheet. Logo is
// first; the store keeps it at ordinal 0 on existing sheets too.
func DefaultHeader() []string {
	return []string{
		ColLogo, ColBrand, ColValue, ColCode, ColPin, ColExpiry,
		ColEmailDate, ColMessageID, ColAddedBy, ColCreatedAt,
	}
}

// Voucher is one record extracted from a voucher email. Code is the
// deduplication key; a voucher without a code is always written as a new
// row. Extra carries label/value pairs that do not map onto a fixed field
// so that future sheet columns can pick them up.
type Voucher struct {
	Brand     string
	Logo      string // =IMAGE(...) formula referencing the brand logo
	Value     string
	Code      string
	Pin       string
	Expiry    string
	EmailDate string
	MessageID string
	AddedBy   string
	CreatedAt string

	Extra map[string]string
}

// Set assigns a value by canonical column name, falling back to Extra for
// columns the struct does not model.
func (v *Voucher) Set(column, value string) {
	switch column {
	case ColBrand:
		v.Brand = value
	case ColLogo:
		v.Logo = value
	case ColValue:
		v.Value = value
	case ColCode:
		v.Code = value
	case ColPin:
		v.Pin = value
	case ColExpiry:
		v.Expiry = value
	case ColEmailDate:
		v.EmailDate = value
	case ColMessageID:
		v.MessageID = value
	case ColAddedBy:
		v.AddedBy = value
	case ColCreatedAt:
		v.CreatedAt = value
	default:
		if v.Extra == nil {
			v.Extra = make(map[string]string)
		}
		v.Extra[column] = value
	}
}

// Field returns the value for a canonical column name, or "" when the
// voucher has nothing for it.
func (v *Voucher) Field(column string) string {
	switch column {
	case ColBrand:
		return v.Brand
	case ColLogo:
		return v.Logo
	case ColValue:
		return v.Value
	case ColCode:
		return v.Code
	case ColPin:
		return v.Pin
	case ColExpiry:
		return v.Expiry
	case ColEmailDate:
		return v.EmailDate
	case ColMessageID:
		return v.MessageID
	case ColAddedBy:
		return v.AddedBy
	case ColCreatedAt:
		return v.CreatedAt
	default:
		return v.Extra[column]
	}
}

// RunResult summarizes one processing run. It is returned to the caller
// even when the run hit a global error; Errors carries everything that
// went wrong without failing the run.
type RunResult struct {
	EmailsChecked int      `json:"emails_checked"`
	VouchersFound int      `json:"vouchers_found"`
	RowsAdded     int      `json:"rows_added"`
	Errors        []string `json:"errors"`
	Mode          string   `json:"mode"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

// NewRunResult returns an empty result for the given mode. Errors is
// non-nil so an error-free run serializes as an empty list.
func NewRunResult(mode string) *RunResult {
	return &RunResult{Mode: mode, Errors: []string{}}
}
