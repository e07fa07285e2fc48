package service

import "gyftr-sheet-sync/internal/model"

// maxBodyDepth caps the multipart traversal so a pathological message
// cannot recurse without bound.
const maxBodyDepth = 16

// HTMLBody returns the first text/html content found by a depth-first
// walk of the message part tree, preferring HTML over plain text at every
// branch. Returns "" when the tree holds no HTML.
func HTMLBody(part *model.BodyPart) string {
	return htmlContent(part, 0)
}

func htmlContent(part *model.BodyPart, depth int) string {
	if part == nil || depth > maxBodyDepth {
		return ""
	}

	if len(part.Parts) > 0 {
		for _, sub := range part.Parts {
			if sub.MimeType == "text/html" && sub.Data != "" {
				return sub.Data
			}
			if len(sub.Parts) > 0 {
				if html := htmlContent(sub, depth+1); html != "" {
					return html
				}
			}
		}
		return ""
	}

	if part.MimeType == "text/html" {
		return part.Data
	}
	return ""
}
