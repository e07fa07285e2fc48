package sheetstore

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"gyftr-sheet-sync/internal/config"
)

// GoogleAPI implements API against the Google Sheets v4 API for one
// spreadsheet.
type GoogleAPI struct {
	service       *sheets.Service
	spreadsheetID string
}

var _ API = (*GoogleAPI)(nil)

// NewGoogleAPI creates a Sheets-backed adapter using the same
// refresh-token OAuth2 flow as the mailbox gateway.
func NewGoogleAPI(ctx context.Context, cfg *config.GmailConfig, spreadsheetID string) (*GoogleAPI, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{sheets.SpreadsheetsScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &GoogleAPI{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func (g *GoogleAPI) Metadata(ctx context.Context) (*Meta, error) {
	spreadsheet, err := g.service.Spreadsheets.Get(g.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}
	if len(spreadsheet.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", g.spreadsheetID)
	}

	meta := &Meta{
		Title:   spreadsheet.Sheets[0].Properties.Title,
		SheetID: spreadsheet.Sheets[0].Properties.SheetId,
		Sheets:  make(map[string]int64, len(spreadsheet.Sheets)),
	}
	for _, sheet := range spreadsheet.Sheets {
		meta.Sheets[sheet.Properties.Title] = sheet.Properties.SheetId
	}
	return meta, nil
}

func (g *GoogleAPI) Read(ctx context.Context, rng string) ([][]string, error) {
	response, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	return toStrings(response.Values), nil
}

func (g *GoogleAPI) Update(ctx context.Context, rng string, values [][]string) error {
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, rng, &sheets.ValueRange{
		Values: toInterfaces(values),
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", rng, err)
	}
	return nil
}

func (g *GoogleAPI) Append(ctx context.Context, rng string, values [][]string) error {
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, rng, &sheets.ValueRange{
		Values: toInterfaces(values),
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to range %s: %w", rng, err)
	}
	return nil
}

func (g *GoogleAPI) InsertRows(ctx context.Context, sheetID, start, end int64) error {
	return g.batchUpdate(ctx, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: start,
				EndIndex:   end,
			},
			InheritFromBefore: false,
		},
	})
}

func (g *GoogleAPI) InsertColumn(ctx context.Context, sheetID, index int64) error {
	return g.batchUpdate(ctx, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: index,
				EndIndex:   index + 1,
			},
			InheritFromBefore: false,
		},
	})
}

func (g *GoogleAPI) MoveColumn(ctx context.Context, sheetID, from, to int64) error {
	return g.batchUpdate(ctx, &sheets.Request{
		MoveDimension: &sheets.MoveDimensionRequest{
			Source: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: from,
				EndIndex:   from + 1,
			},
			DestinationIndex: to,
		},
	})
}

func (g *GoogleAPI) FormatColumn(ctx context.Context, sheetID, column int64, formatType, pattern string) error {
	return g.batchUpdate(ctx, &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartColumnIndex: column,
				EndColumnIndex:   column + 1,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{
						Type:    formatType,
						Pattern: pattern,
					},
				},
			},
			Fields: "userEnteredFormat.numberFormat",
		},
	})
}

func (g *GoogleAPI) AddSheet(ctx context.Context, title string) (int64, error) {
	response, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to add sheet %s: %w", title, err)
	}
	if len(response.Replies) == 0 || response.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet %s returned no reply", title)
	}
	return response.Replies[0].AddSheet.Properties.SheetId, nil
}

func (g *GoogleAPI) batchUpdate(ctx context.Context, request *sheets.Request) error {
	_, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{request},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update failed: %w", err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprint(cell))
		}
		rows = append(rows, cells)
	}
	return rows
}

func toInterfaces(values [][]string) [][]interface{} {
	rows := make([][]interface{}, 0, len(values))
	for _, row := range values {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		rows = append(rows, cells)
	}
	return rows
}
