package model

import "strings"

// Email represents a fetched mailbox message with the headers the engine
// filters on and the decoded MIME part tree.
type Email struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string // raw From header, e.g. `GyFTR <gifts@gyftr.com>`
	Date     string // raw Date header, written to the sheet as-is
	Snippet  string
	IsRead   bool
	Labels   []string
	Headers  map[string]string
	Body     *BodyPart
}

// BodyPart is one node of a message's MIME tree. Data holds the decoded
// part content; Parts is non-empty for multipart containers.
type BodyPart struct {
	MimeType string
	Data     string
	Parts    []*BodyPart
}

// FromAddress extracts the bare address from the From header. A header
// without angle brackets is returned trimmed as-is.
func (e *Email) FromAddress() string {
	sender := strings.TrimSpace(e.Sender)
	start := strings.LastIndex(sender, "<")
	if start < 0 {
		return sender
	}
	end := strings.Index(sender[start:], ">")
	if end < 0 {
		return sender
	}
	return strings.TrimSpace(sender[start+1 : start+end])
}

// FromName extracts the display-name portion of the From header, without
// surrounding quotes.
func (e *Email) FromName() string {
	sender := strings.TrimSpace(e.Sender)
	start := strings.LastIndex(sender, "<")
	if start < 0 {
		return sender
	}
	return strings.Trim(strings.TrimSpace(sender[:start]), `"`)
}
