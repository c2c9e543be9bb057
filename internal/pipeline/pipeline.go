// Package pipeline orchestrates spreadsheet ingestion: tabular read,
// extraction, status derivation and canonical record construction.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/sheet"
)

// ItemExtractor is implemented by the extraction service client.
type ItemExtractor interface {
	Extract(ctx context.Context, grid *sheet.Grid, filename string) ([]model.ExtractedItem, error)
}

// Parser runs the full ingestion sequence for one uploaded sheet. Instances
// are safe for concurrent use; each Parse call is an independent sequence.
type Parser struct {
	extractor ItemExtractor
	now       func() time.Time
}

// NewParser creates a Parser around the given extractor.
func NewParser(extractor ItemExtractor) *Parser {
	return &Parser{extractor: extractor, now: time.Now}
}

// Parse reads the spreadsheet at path, extracts the order lines, derives
// each line's status and returns the canonical items ready for the store.
// Steps run strictly in sequence; any step's failure aborts the upload.
func (p *Parser) Parse(ctx context.Context, path, filename string) ([]model.ProductionItem, error) {
	zap.L().Info("pipeline: starting parse", zap.String("file", filename))

	grid, err := sheet.ReadGrid(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", filename)
	}

	extracted, err := p.extractor.Extract(ctx, grid, filename)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	items := make([]model.ProductionItem, 0, len(extracted))
	for _, e := range extracted {
		items = append(items, model.ProductionItem{
			OrderNumber:    e.OrderNumber,
			Style:          e.Style,
			Fabric:         e.Fabric,
			Color:          e.Color,
			Quantity:       e.Quantity,
			Status:         model.DeriveStatus(e.Dates, now),
			Dates:          e.Dates,
			Supplier:       e.Supplier,
			RequiredWeight: e.RequiredWeight,
			SourceFile:     filename,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	zap.L().Info("pipeline: parse complete",
		zap.String("file", filename),
		zap.Int("items", len(items)),
	)
	return items, nil
}
