package mailbox

import (
	"context"
	"errors"

	"gyftr-sheet-sync/internal/model"
)

// ErrCursorExpired reports that the provider no longer accepts a stored
// change-log position. Callers recover by falling back to a time-windowed
// search instead of failing the run.
var ErrCursorExpired = errors.New("change-log position expired or invalid")

// Ref identifies a mailbox message returned by a listing query.
type Ref struct {
	ID       string
	ThreadID string
}

// Gateway abstracts the mailbox provider consumed by the sync engine.
type Gateway interface {
	// ListMessages runs a provider search query and returns message refs
	// plus an opaque continuation token ("" when exhausted).
	ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) ([]Ref, string, error)

	// GetMessage fetches a full message including headers and the decoded
	// MIME part tree.
	GetMessage(ctx context.Context, id string) (*model.Email, error)

	// ListChangesSince returns the IDs of messages added after the given
	// change-log position, in discovery order. Returns an error wrapping
	// ErrCursorExpired when the position is too old for the provider.
	ListChangesSince(ctx context.Context, historyID string) ([]string, error)

	// MarkRead clears the unread state of a message. Failures are
	// non-fatal for callers.
	MarkRead(ctx context.Context, id string) error
}
