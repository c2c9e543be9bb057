package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prodsheet/internal/extract"
	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/sheet"
)

type mockExtractor struct {
	items []model.ExtractedItem
	err   error
	grids []*sheet.Grid
}

func (m *mockExtractor) Extract(ctx context.Context, grid *sheet.Grid, filename string) ([]model.ExtractedItem, error) {
	m.grids = append(m.grids, grid)
	return m.items, m.err
}

func writeTestSheet(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	s, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := s.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestParse_BuildsCanonicalItems(t *testing.T) {
	path := writeTestSheet(t, [][]string{
		{"IO Number", "Style", "Color", "Qty", "Fabric Date", "Shipping"},
		{"PO-1", "ST-1", "Navy", "100", "01/01/2024", "01/12/2030"},
	})

	weight := 2.5
	ext := &mockExtractor{items: []model.ExtractedItem{
		{
			OrderNumber:    "PO-1",
			Style:          "ST-1",
			Fabric:         "Cotton",
			Color:          "Navy",
			Quantity:       100,
			Dates:          model.StageDates{Fabric: "2024-01-01", Shipping: "2030-12-01"},
			Supplier:       "Acme Mills",
			RequiredWeight: &weight,
		},
	}}

	p := NewParser(ext)
	frozen := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return frozen }

	items, err := p.Parse(context.Background(), path, "orders.xlsx")
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "PO-1", got.OrderNumber)
	assert.Equal(t, model.StatusInProduction, got.Status)
	assert.Equal(t, "orders.xlsx", got.SourceFile)
	assert.Equal(t, frozen, got.CreatedAt)
	assert.Equal(t, frozen, got.UpdatedAt)
	require.NotNil(t, got.RequiredWeight)
	assert.Equal(t, 2.5, *got.RequiredWeight)

	// The extractor sees the parsed grid, headers included.
	require.Len(t, ext.grids, 1)
	assert.Equal(t, []string{"IO Number", "Style", "Color", "Qty", "Fabric Date", "Shipping"}, ext.grids[0].Header)
}

func TestParse_DerivesStatusPerItem(t *testing.T) {
	path := writeTestSheet(t, [][]string{
		{"IO Number", "Style", "Color", "Qty"},
		{"PO-1", "ST-1", "Navy", "100"},
		{"PO-2", "ST-2", "Red", "50"},
	})

	ext := &mockExtractor{items: []model.ExtractedItem{
		{OrderNumber: "PO-1", Style: "ST-1", Color: "Navy", Quantity: 100},
		{
			OrderNumber: "PO-2", Style: "ST-2", Color: "Red", Quantity: 50,
			Dates: model.StageDates{Fabric: "2024-01-01", Cutting: "2024-01-05", Shipping: "2024-02-01"},
		},
	}}

	p := NewParser(ext)
	p.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	items, err := p.Parse(context.Background(), path, "orders.xlsx")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.StatusPending, items[0].Status)
	assert.Equal(t, model.StatusCompleted, items[1].Status)
}

func TestParse_UnreadableFile(t *testing.T) {
	ext := &mockExtractor{}
	p := NewParser(ext)

	_, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"), "missing.xlsx")
	require.Error(t, err)
	assert.True(t, sheet.IsReadError(err))
	assert.Empty(t, ext.grids, "extractor must not run when read fails")
}

func TestParse_ExtractorErrorPassesThrough(t *testing.T) {
	path := writeTestSheet(t, [][]string{
		{"IO Number", "Style", "Color", "Qty", "Fabric", "Shipping"},
		{"PO-1", "ST-1", "Navy", "100", "Cotton", "01/12/2030"},
	})

	p := NewParser(&mockExtractor{err: extract.NewValidationError("model refused to process orders.xlsx")})
	_, err := p.Parse(context.Background(), path, "orders.xlsx")
	require.Error(t, err)
	assert.True(t, extract.IsValidation(err))
}
