package sheetstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyftr-sheet-sync/internal/model"
)

func voucher(code string) *model.Voucher {
	return &model.Voucher{
		Brand:     "Swiggy Money Voucher",
		Logo:      `=IMAGE("https://images.gyftr.com/logo/344.png")`,
		Value:     "Rs. 500",
		Code:      code,
		Pin:       "9876",
		Expiry:    "31-Dec-2026",
		EmailDate: "Sat, 29 Aug 2026 10:00:00 +0530",
		MessageID: "msg-1",
		AddedBy:   "gifts@gyftr.com",
		CreatedAt: "2026-08-29 10:00:05",
	}
}

func TestCommitEmptySheetWritesDefaultHeader(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	grid := api.grids["Vouchers"]
	require.Len(t, grid, 2)
	assert.Equal(t, model.DefaultHeader(), grid[0])
	assert.Equal(t, "'ABC123", grid[1][3])
	assert.Equal(t, "Swiggy Money Voucher", grid[1][1])

	// Expiry and Created At get date formats on header creation.
	assert.Contains(t, api.formatCalls, "5:DATE:d-mmm-yyyy")
	assert.Contains(t, api.formatCalls, "9:DATE_TIME:yyyy-mm-dd hh:mm:ss")
}

func TestCommitSkipsDuplicateCodes(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	added, err = store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, api.grids["Vouchers"], 2)
}

func TestCommitEmptyCodeAlwaysWritten(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	batch := []*model.Voucher{voucher("ABC123"), voucher("")}
	added, err := store.Commit(context.Background(), batch, true)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Rerun: the coded voucher is a duplicate, the empty-code one is not.
	added, err = store.Commit(context.Background(), batch, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, api.grids["Vouchers"], 4)
}

func TestCommitZeroSurvivorsIsNoOp(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	_, err := store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	before := len(api.grids["Vouchers"])

	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, api.grids["Vouchers"], before)
}

func TestCommitInsertsAtTop(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	_, err := store.Commit(context.Background(), []*model.Voucher{voucher("OLD-1")}, true)
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), []*model.Voucher{voucher("NEW-1")}, true)
	require.NoError(t, err)

	grid := api.grids["Vouchers"]
	require.Len(t, grid, 3)
	assert.Equal(t, "'NEW-1", grid[1][3])
	assert.Equal(t, "'OLD-1", grid[2][3])
}

func TestCommitBackfillAppends(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	_, err := store.Commit(context.Background(), []*model.Voucher{voucher("OLD-1")}, false)
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), []*model.Voucher{voucher("NEW-1")}, false)
	require.NoError(t, err)

	grid := api.grids["Vouchers"]
	require.Len(t, grid, 3)
	assert.Equal(t, "'OLD-1", grid[1][3])
	assert.Equal(t, "'NEW-1", grid[2][3])
}

func TestCommitInsertFailureFallsBackToAppend(t *testing.T) {
	api := newFakeAPI("Vouchers")
	store := NewStore(api)

	_, err := store.Commit(context.Background(), []*model.Voucher{voucher("OLD-1")}, true)
	require.NoError(t, err)

	api.failInsertRows = true
	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("NEW-1")}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	grid := api.grids["Vouchers"]
	require.Len(t, grid, 3)
	assert.Equal(t, "'NEW-1", grid[2][3])
}

func TestCommitLegacyHeaderAliases(t *testing.T) {
	api := newFakeAPI("Vouchers")
	api.grids["Vouchers"] = [][]string{
		{"Logo", "Brand", "E-Gift Card Code", "PIN", "Valid Till"},
		{"", "KFC", "'ABC123", "1111", "01-Jan-2026"},
	}
	store := NewStore(api)

	// Same code as the legacy row: skipped even though the header names differ.
	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("ABC123")}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	added, err = store.Commit(context.Background(), []*model.Voucher{voucher("XYZ789")}, true)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	grid := api.grids["Vouchers"]
	header := grid[0]
	assert.Equal(t, []string{"Logo", "Brand", "E-Gift Card Code", "PIN", "Valid Till", "Email Date", "Added By", "Created At"}, header)
	assert.Equal(t, "'XYZ789", grid[1][2])
	assert.Equal(t, "9876", grid[1][3])
	assert.Equal(t, "31-Dec-2026", grid[1][4])
}

func TestCommitRelocatesLogoColumn(t *testing.T) {
	api := newFakeAPI("Vouchers")
	api.grids["Vouchers"] = [][]string{
		{"Brand", "Value", "Code", "Logo", "Email Date", "Added By", "Created At"},
		{"KFC", "Rs. 100", "'OLD-1", "=IMAGE(\"x\")", "", "", ""},
	}
	store := NewStore(api)

	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("NEW-1")}, true)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	assert.Equal(t, []string{"Vouchers:3->0"}, api.moveCalls)

	grid := api.grids["Vouchers"]
	assert.Equal(t, []string{"Logo", "Brand", "Value", "Code", "Email Date", "Added By", "Created At"}, grid[0])
	assert.Equal(t, "'NEW-1", grid[1][3])
	assert.Equal(t, "=IMAGE(\"x\")", grid[2][0])
	assert.Equal(t, "'OLD-1", grid[2][3])
}

func TestCommitInsertsMissingLogoColumn(t *testing.T) {
	api := newFakeAPI("Vouchers")
	api.grids["Vouchers"] = [][]string{
		{"Brand", "Code", "Email Date", "Added By", "Created At"},
	}
	store := NewStore(api)

	added, err := store.Commit(context.Background(), []*model.Voucher{voucher("NEW-1")}, true)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	assert.Equal(t, []string{"Vouchers@0"}, api.insertColCalls)

	grid := api.grids["Vouchers"]
	assert.Equal(t, []string{"Logo", "Brand", "Code", "Email Date", "Added By", "Created At"}, grid[0])
	assert.Equal(t, `=IMAGE("https://images.gyftr.com/logo/344.png")`, grid[1][0])
	assert.Equal(t, "'NEW-1", grid[1][2])
}

func TestCommitAddsMetadataColumnsOnce(t *testing.T) {
	api := newFakeAPI("Vouchers")
	api.grids["Vouchers"] = [][]string{
		{"Logo", "Brand", "Code"},
	}
	store := NewStore(api)

	_, err := store.Commit(context.Background(), []*model.Voucher{voucher("A-1")}, true)
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), []*model.Voucher{voucher("A-2")}, true)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"Logo", "Brand", "Code", "Email Date", "Added By", "Created At"},
		api.grids["Vouchers"][0])
}
