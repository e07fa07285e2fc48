package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// fakeAPI is an in-memory grid implementing API. It understands the A1
// ranges the store and config store actually use.
type fakeAPI struct {
	title   string
	sheetID int64
	sheets  map[string]int64
	grids   map[string][][]string

	nextSheetID int64

	failInsertRows bool
	formatCalls    []string
	moveCalls      []string
	insertColCalls []string
}

func newFakeAPI(title string) *fakeAPI {
	return &fakeAPI{
		title:       title,
		sheetID:     0,
		sheets:      map[string]int64{title: 0},
		grids:       map[string][][]string{title: {}},
		nextSheetID: 1,
	}
}

func (f *fakeAPI) titleFor(sheetID int64) string {
	for title, id := range f.sheets {
		if id == sheetID {
			return title
		}
	}
	return ""
}

func splitRange(rng string) (string, string) {
	parts := strings.SplitN(rng, "!", 2)
	if len(parts) != 2 {
		panic("fakeAPI: range without sheet title: " + rng)
	}
	return parts[0], parts[1]
}

// cellRef parses a leading A1 cell reference like "A2" or "B10" into a
// zero-based (row, col) pair.
func cellRef(ref string) (int, int) {
	col, row := 0, 0
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A') + 1
		i++
	}
	digits := ref[i:]
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil {
			panic("fakeAPI: bad cell ref: " + ref)
		}
		row = n
	}
	if col > 0 {
		col--
	}
	if row > 0 {
		row--
	}
	return row, col
}

func (f *fakeAPI) Metadata(_ context.Context) (*Meta, error) {
	sheets := make(map[string]int64, len(f.sheets))
	for title, id := range f.sheets {
		sheets[title] = id
	}
	return &Meta{Title: f.title, SheetID: f.sheetID, Sheets: sheets}, nil
}

func (f *fakeAPI) Read(_ context.Context, rng string) ([][]string, error) {
	title, ref := splitRange(rng)
	grid, ok := f.grids[title]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", title)
	}

	copyRows := func(rows [][]string, maxCols int) [][]string {
		var out [][]string
		for _, row := range rows {
			cols := len(row)
			if maxCols > 0 && cols > maxCols {
				cols = maxCols
			}
			out = append(out, append([]string(nil), row[:cols]...))
		}
		return out
	}

	switch {
	case ref == "A1:Z1":
		if len(grid) == 0 || len(grid[0]) == 0 {
			return nil, nil
		}
		return copyRows(grid[:1], 26), nil
	case ref == "A2:Z":
		if len(grid) <= 1 {
			return nil, nil
		}
		return copyRows(grid[1:], 26), nil
	case ref == "A:B":
		return copyRows(grid, 2), nil
	default:
		return nil, fmt.Errorf("fakeAPI: unsupported read range %q", rng)
	}
}

func (f *fakeAPI) Update(_ context.Context, rng string, values [][]string) error {
	title, ref := splitRange(rng)
	if _, ok := f.grids[title]; !ok {
		return fmt.Errorf("no sheet %q", title)
	}

	row, col := 0, 0
	if ref != "1:1" {
		start := ref
		if i := strings.Index(ref, ":"); i >= 0 {
			start = ref[:i]
		}
		row, col = cellRef(start)
	}
	f.write(title, row, col, values)
	return nil
}

func (f *fakeAPI) Append(_ context.Context, rng string, values [][]string) error {
	title, _ := splitRange(rng)
	grid, ok := f.grids[title]
	if !ok {
		return fmt.Errorf("no sheet %q", title)
	}
	f.write(title, len(grid), 0, values)
	return nil
}

func (f *fakeAPI) InsertRows(_ context.Context, sheetID, start, end int64) error {
	if f.failInsertRows {
		return errors.New("insertDimension rejected")
	}
	title := f.titleFor(sheetID)
	grid := f.grids[title]
	blank := make([][]string, end-start)
	for i := range blank {
		blank[i] = []string{}
	}
	updated := append([][]string{}, grid[:start]...)
	updated = append(updated, blank...)
	updated = append(updated, grid[start:]...)
	f.grids[title] = updated
	return nil
}

func (f *fakeAPI) InsertColumn(_ context.Context, sheetID, index int64) error {
	title := f.titleFor(sheetID)
	f.insertColCalls = append(f.insertColCalls, fmt.Sprintf("%s@%d", title, index))
	grid := f.grids[title]
	for r, row := range grid {
		if int(index) > len(row) {
			continue
		}
		updated := append([]string{}, row[:index]...)
		updated = append(updated, "")
		updated = append(updated, row[index:]...)
		grid[r] = updated
	}
	return nil
}

func (f *fakeAPI) MoveColumn(_ context.Context, sheetID, from, to int64) error {
	title := f.titleFor(sheetID)
	f.moveCalls = append(f.moveCalls, fmt.Sprintf("%s:%d->%d", title, from, to))
	grid := f.grids[title]
	for r, row := range grid {
		if int(from) >= len(row) {
			continue
		}
		value := row[from]
		row = append(row[:from], row[from+1:]...)
		updated := append([]string{}, row[:to]...)
		updated = append(updated, value)
		updated = append(updated, row[to:]...)
		grid[r] = updated
	}
	return nil
}

func (f *fakeAPI) FormatColumn(_ context.Context, sheetID, column int64, formatType, pattern string) error {
	f.formatCalls = append(f.formatCalls, fmt.Sprintf("%d:%s:%s", column, formatType, pattern))
	return nil
}

func (f *fakeAPI) AddSheet(_ context.Context, title string) (int64, error) {
	if _, ok := f.sheets[title]; ok {
		return 0, fmt.Errorf("sheet %q already exists", title)
	}
	id := f.nextSheetID
	f.nextSheetID++
	f.sheets[title] = id
	f.grids[title] = [][]string{}
	return id, nil
}

func (f *fakeAPI) write(title string, row, col int, values [][]string) {
	grid := f.grids[title]
	for i, vrow := range values {
		r := row + i
		for len(grid) <= r {
			grid = append(grid, []string{})
		}
		for j, v := range vrow {
			c := col + j
			for len(grid[r]) <= c {
				grid[r] = append(grid[r], "")
			}
			grid[r][c] = v
		}
	}
	f.grids[title] = grid
}
