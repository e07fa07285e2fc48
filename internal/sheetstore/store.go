package sheetstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/model"
)

// textForcePrefix makes Sheets keep a cell as literal text instead of
// reinterpreting voucher codes as numbers or dates.
const textForcePrefix = "'"

// Store commits voucher records to the primary sheet, handling header
// evolution and deduplication on the canonical Code column.
type Store struct {
	api API
}

// NewStore creates a voucher store over the given spreadsheet API.
func NewStore(api API) *Store {
	return &Store{api: api}
}

// Commit merges vouchers into the sheet and returns the number of rows
// written. Records whose code already exists are skipped; records with an
// empty code are always written. Zero surviving rows is a no-op, not an
// error. With insertAtTop, rows are inserted directly below the header;
// a structural failure there degrades to an append.
func (s *Store) Commit(ctx context.Context, vouchers []*model.Voucher, insertAtTop bool) (int, error) {
	meta, err := s.api.Metadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolving sheet metadata: %w", err)
	}

	headers, err := s.prepareHeader(ctx, meta)
	if err != nil {
		return 0, err
	}

	seen, err := s.existingCodes(ctx, meta.Title, headers)
	if err != nil {
		return 0, err
	}

	var rows [][]string
	for _, voucher := range vouchers {
		if voucher.Code != "" {
			if _, dup := seen[voucher.Code]; dup {
				logrus.Infof("Skipping duplicate voucher: %s", voucher.Code)
				continue
			}
		}

		row := make([]string, len(headers))
		for i, header := range headers {
			column := model.CanonicalColumn(header)
			value := voucher.Field(column)
			if value != "" && column == model.ColCode {
				value = textForcePrefix + value
			}
			row[i] = value
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		logrus.Info("No new unique vouchers to write")
		return 0, nil
	}

	if insertAtTop {
		if err := s.insertAtTop(ctx, meta, rows); err != nil {
			logrus.Errorf("Insert at top failed: %v. Falling back to append", err)
		} else {
			return len(rows), nil
		}
	}

	logrus.Infof("Appending %d rows to sheet %q", len(rows), meta.Title)
	if err := s.api.Append(ctx, meta.Title+"!A1", rows); err != nil {
		return 0, fmt.Errorf("appending rows: %w", err)
	}
	return len(rows), nil
}

// prepareHeader resolves the header row, creating the default header on an
// empty sheet, appending newly-introduced columns on an existing one, and
// forcing the Logo column to ordinal 0.
func (s *Store) prepareHeader(ctx context.Context, meta *Meta) ([]string, error) {
	headerRows, err := s.api.Read(ctx, meta.Title+"!A1:Z1")
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}

	var headers []string
	if len(headerRows) > 0 {
		headers = headerRows[0]
	}

	if len(headers) == 0 {
		headers = model.DefaultHeader()
		if err := s.api.Update(ctx, meta.Title+"!1:1", [][]string{headers}); err != nil {
			return nil, fmt.Errorf("writing default header: %w", err)
		}
		s.formatDateColumns(ctx, meta.SheetID, headers)
		return headers, nil
	}

	changed := false
	for _, column := range []string{model.ColEmailDate, model.ColAddedBy, model.ColCreatedAt} {
		if indexOf(headers, column) < 0 {
			headers = append(headers, column)
			changed = true
		}
	}
	if changed {
		logrus.Infof("Updating headers to include new columns: %v", headers)
		if err := s.api.Update(ctx, meta.Title+"!1:1", [][]string{headers}); err != nil {
			return nil, fmt.Errorf("updating header row: %w", err)
		}
	}

	return s.ensureLogoFirst(ctx, meta, headers)
}

// ensureLogoFirst relocates the Logo column to ordinal 0, inserting a new
// leading column when the sheet has none.
func (s *Store) ensureLogoFirst(ctx context.Context, meta *Meta, headers []string) ([]string, error) {
	idx := indexOf(headers, model.ColLogo)
	switch {
	case idx == 0:
		return headers, nil
	case idx > 0:
		logrus.Infof("Relocating %q column from position %d to 0", model.ColLogo, idx)
		if err := s.api.MoveColumn(ctx, meta.SheetID, int64(idx), 0); err != nil {
			return nil, fmt.Errorf("moving logo column: %w", err)
		}
		reordered := make([]string, 0, len(headers))
		reordered = append(reordered, model.ColLogo)
		reordered = append(reordered, headers[:idx]...)
		reordered = append(reordered, headers[idx+1:]...)
		return reordered, nil
	default:
		logrus.Infof("Inserting leading %q column", model.ColLogo)
		if err := s.api.InsertColumn(ctx, meta.SheetID, 0); err != nil {
			return nil, fmt.Errorf("inserting logo column: %w", err)
		}
		headers = append([]string{model.ColLogo}, headers...)
		if err := s.api.Update(ctx, meta.Title+"!1:1", [][]string{headers}); err != nil {
			return nil, fmt.Errorf("updating header after logo insert: %w", err)
		}
		return headers, nil
	}
}

// formatDateColumns applies date presentation formats to the Expiry and
// Created At columns. Best effort: a formatting failure never fails the
// commit.
func (s *Store) formatDateColumns(ctx context.Context, sheetID int64, headers []string) {
	if idx := indexOf(headers, model.ColExpiry); idx >= 0 {
		if err := s.api.FormatColumn(ctx, sheetID, int64(idx), "DATE", "d-mmm-yyyy"); err != nil {
			logrus.Warnf("Could not set date format on %q column: %v", model.ColExpiry, err)
		}
	}
	if idx := indexOf(headers, model.ColCreatedAt); idx >= 0 {
		if err := s.api.FormatColumn(ctx, sheetID, int64(idx), "DATE_TIME", "yyyy-mm-dd hh:mm:ss"); err != nil {
			logrus.Warnf("Could not set date format on %q column: %v", model.ColCreatedAt, err)
		}
	}
}

// existingCodes reads the data body and collects every already-stored
// code, with the text-forcing prefix stripped.
func (s *Store) existingCodes(ctx context.Context, title string, headers []string) (map[string]struct{}, error) {
	codeIdx := -1
	for i, header := range headers {
		if model.CanonicalColumn(header) == model.ColCode {
			codeIdx = i
			break
		}
	}

	seen := make(map[string]struct{})
	if codeIdx < 0 {
		return seen, nil
	}

	rows, err := s.api.Read(ctx, title+"!A2:Z")
	if err != nil {
		return nil, fmt.Errorf("reading existing rows: %w", err)
	}
	for _, row := range rows {
		if len(row) > codeIdx {
			code := strings.TrimLeft(row[codeIdx], textForcePrefix)
			if code != "" {
				seen[code] = struct{}{}
			}
		}
	}
	return seen, nil
}

// insertAtTop physically inserts blank rows below the header and writes
// the new values into them.
func (s *Store) insertAtTop(ctx context.Context, meta *Meta, rows [][]string) error {
	logrus.Infof("Inserting %d rows at the top of sheet %q", len(rows), meta.Title)
	if err := s.api.InsertRows(ctx, meta.SheetID, 1, 1+int64(len(rows))); err != nil {
		return fmt.Errorf("inserting blank rows: %w", err)
	}
	if err := s.api.Update(ctx, meta.Title+"!A2", rows); err != nil {
		return fmt.Errorf("writing inserted rows: %w", err)
	}
	return nil
}

func indexOf(headers []string, name string) int {
	for i, header := range headers {
		if header == name {
			return i
		}
	}
	return -1
}
