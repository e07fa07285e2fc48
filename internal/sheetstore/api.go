package sheetstore

import "context"

// Meta describes the target spreadsheet: the primary (first) sheet plus
// the IDs of every sheet by title.
type Meta struct {
	Title   string
	SheetID int64
	Sheets  map[string]int64
}

// API is the raw spreadsheet surface the store and config store are built
// on. Ranges use A1 notation prefixed with the sheet title. The Google
// Sheets adapter implements it; tests use an in-memory grid.
type API interface {
	Metadata(ctx context.Context) (*Meta, error)
	Read(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, values [][]string) error
	Append(ctx context.Context, rng string, values [][]string) error

	// InsertRows inserts blank rows [start, end) on the given sheet.
	InsertRows(ctx context.Context, sheetID, start, end int64) error
	// InsertColumn inserts one blank column at index on the given sheet.
	InsertColumn(ctx context.Context, sheetID, index int64) error
	// MoveColumn relocates the column at from so it lands at index to.
	MoveColumn(ctx context.Context, sheetID, from, to int64) error
	// FormatColumn applies a number format to a whole column.
	FormatColumn(ctx context.Context, sheetID, column int64, formatType, pattern string) error
	// AddSheet creates a new sheet and returns its ID.
	AddSheet(ctx context.Context, title string) (int64, error)
}
