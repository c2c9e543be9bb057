// Package extract maps vendor spreadsheet grids onto the canonical
// production item schema using Claude structured extraction.
package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/resilience"
	"github.com/sells-group/prodsheet/internal/sheet"
	"github.com/sells-group/prodsheet/pkg/anthropic"
)

// systemPrompt carries the fixed field-mapping instructions. Column naming
// varies per vendor, so semantic column-to-field alignment and date
// normalization are delegated to the model; status is never requested, it is
// derived locally after extraction.
const systemPrompt = `You are an expert at extracting production planning data from textile manufacturing sheets.

Your task:
1. Parse the production order data regardless of column name variations
2. Map vendor-specific headers to canonical fields:
   - order_number: look for "IO Number", "Job", "Order #", "Order", "PO" or similar
   - style: look for "Style", "Style Code", "Style No"
   - fabric: look for "Fabric", "Fabric Spec", "Fabric Description" (may have leading/trailing spaces)
   - color: usually "Color", "Colour"
   - quantity: the main order quantity (often just "Quantity" or "Qty"), as an integer
3. Extract all date fields under production stages (Fabric, Cutting, Sewing, Embroidery, Size Set, VAP, Feeding)
   - Look for columns with "Date", "Plan", "Planned Date", "Plan Date"
   - Map each to the matching key of the dates object
4. If style/fabric/color repeat from a merged cell, use the value from the previous row
5. Standardize ALL dates to YYYY-MM-DD. Inputs are day-first and may use "-", "/" or "." separators with two- or four-digit years
6. Return one item per data row; skip empty rows and header rows
7. Extract supplier name if available (often in Cutting or Fabric columns)
8. Extract required weight as a number if a "Reqd Wt" or "Required Weight" column exists

IMPORTANT:
- The shipping date goes in dates.shipping, never in a stage field
- Production stage dates go in dates.fabric, dates.cutting, dates.sewing, dates.embroidery, dates.size_set, dates.vap, dates.feeding
- When a stage has multiple date columns, prefer the "Plan Date" / "Planned Date" column
- quantity must be an integer (parse from string if needed)

Respond with a single JSON object:
{"items": [{"order_number": "...", "style": "...", "fabric": "...", "color": "...", "quantity": 0, "dates": {...}, "supplier": "...", "required_weight": 0.0}]}
Use null or omit optional fields that are not present. Do not invent data.`

// Config holds extraction client settings.
type Config struct {
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
}

// Extractor sends tabular grids to Claude and validates the response
// against the extraction schema.
type Extractor struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates an Extractor. RequestsPerMinute <= 0 disables rate limiting.
func New(client anthropic.Client, cfg Config) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return &Extractor{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		retry:   resilience.DefaultRetryConfig(),
	}
}

// Extract sends the grid to the model and returns the validated batch. A
// refusal, non-conformant response or empty payload is a *ValidationError;
// it must surface to the caller rather than degrade to an empty batch,
// because an empty batch is indistinguishable from a sheet with no data.
func (e *Extractor) Extract(ctx context.Context, grid *sheet.Grid, filename string) ([]model.ExtractedItem, error) {
	payload := grid.CSV()
	zap.L().Debug("extract: sending grid",
		zap.String("file", filename),
		zap.Int("payload_bytes", len(payload)),
		zap.Int("rows", len(grid.Rows)),
	)

	req := anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Extract all production items from this sheet:\n\n%s", payload)},
		},
	}

	// Each attempt takes its own limiter token so retries stay paced too.
	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
		return e.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: message call for %s", filename)
	}

	resp.Usage.LogCost(e.cfg.Model, "extract")

	if resp.StopReason == "refusal" {
		return nil, NewValidationError("extract: model refused to process %s", filename)
	}
	if resp.StopReason == "max_tokens" {
		return nil, NewValidationError("extract: response truncated at %d tokens for %s", e.cfg.MaxTokens, filename)
	}

	items, err := parseBatch(resp.Text())
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse response for %s", filename)
	}

	zap.L().Info("extract: batch extracted",
		zap.String("file", filename),
		zap.Int("items", len(items)),
	)
	return items, nil
}
