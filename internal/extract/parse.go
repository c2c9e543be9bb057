package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prodsheet/internal/model"
)

// ValidationError marks a response the model produced that does not conform
// to the extraction schema. Callers translate it to a user-visible failure.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err has a ValidationError in its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// wireItem mirrors the extraction schema with loose numeric types so that
// quantity and weight survive being emitted as strings with separators.
type wireItem struct {
	OrderNumber    string           `json:"order_number"`
	Style          string           `json:"style"`
	Fabric         string           `json:"fabric"`
	Color          string           `json:"color"`
	Quantity       any              `json:"quantity"`
	Dates          model.StageDates `json:"dates"`
	Supplier       string           `json:"supplier"`
	RequiredWeight any              `json:"required_weight"`
}

type wireBatch struct {
	Items []wireItem `json:"items"`
}

// parseBatch parses and validates the model response. Structural problems
// (bad JSON, missing required fields, negative quantity) are hard
// validation errors; an individual date that does not normalize is dropped
// with a warning, matching how status derivation treats unparseable dates.
func parseBatch(text string) ([]model.ExtractedItem, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, NewValidationError("empty response")
	}

	var batch wireBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, NewValidationError("response is not valid JSON: %v", err)
	}
	if batch.Items == nil {
		return nil, NewValidationError(`response missing "items" array`)
	}

	items := make([]model.ExtractedItem, 0, len(batch.Items))
	for i, w := range batch.Items {
		item, err := validateItem(i, w)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func validateItem(idx int, w wireItem) (model.ExtractedItem, error) {
	var zero model.ExtractedItem

	orderNumber := strings.TrimSpace(w.OrderNumber)
	style := strings.TrimSpace(w.Style)
	fabric := strings.TrimSpace(w.Fabric)
	color := strings.TrimSpace(w.Color)

	switch {
	case orderNumber == "":
		return zero, NewValidationError("item %d: order_number is required", idx)
	case style == "":
		return zero, NewValidationError("item %d: style is required", idx)
	case fabric == "":
		return zero, NewValidationError("item %d: fabric is required", idx)
	case color == "":
		return zero, NewValidationError("item %d: color is required", idx)
	}

	qty, err := coerceQuantity(w.Quantity)
	if err != nil {
		return zero, NewValidationError("item %d (%s/%s): %v", idx, orderNumber, color, err)
	}

	var weight *float64
	if w.RequiredWeight != nil {
		v, err := coerceFloat(w.RequiredWeight)
		if err != nil {
			return zero, NewValidationError("item %d (%s/%s): required_weight: %v", idx, orderNumber, color, err)
		}
		if v < 0 {
			return zero, NewValidationError("item %d (%s/%s): required_weight is negative", idx, orderNumber, color)
		}
		weight = &v
	}

	return model.ExtractedItem{
		OrderNumber:    orderNumber,
		Style:          style,
		Fabric:         fabric,
		Color:          color,
		Quantity:       qty,
		Dates:          normalizeDates(orderNumber, color, w.Dates),
		Supplier:       strings.TrimSpace(w.Supplier),
		RequiredWeight: weight,
	}, nil
}

// coerceQuantity accepts JSON numbers and numeric strings, including
// thousands separators ("1,200").
func coerceQuantity(v any) (int, error) {
	f, err := coerceFloat(v)
	if err != nil {
		return 0, fmt.Errorf("quantity: %w", err)
	}
	if f < 0 {
		return 0, fmt.Errorf("quantity is negative")
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity %v is not an integer", f)
	}
	return int(f), nil
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("value is missing")
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if s == "" {
			return 0, fmt.Errorf("value is empty")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value has unexpected type %T", v)
	}
}

// normalizeDates re-normalizes every date field to ISO form and drops the
// ones that do not parse.
func normalizeDates(orderNumber, color string, d model.StageDates) model.StageDates {
	norm := func(field, raw string) string {
		if strings.TrimSpace(raw) == "" {
			return ""
		}
		iso := model.FormatISO(raw)
		if iso == "" {
			zap.L().Warn("extract: dropping unparseable date",
				zap.String("order_number", orderNumber),
				zap.String("color", color),
				zap.String("field", field),
				zap.String("value", raw),
			)
		}
		return iso
	}
	return model.StageDates{
		Shipping:   norm("shipping", d.Shipping),
		Fabric:     norm("fabric", d.Fabric),
		Cutting:    norm("cutting", d.Cutting),
		Sewing:     norm("sewing", d.Sewing),
		Embroidery: norm("embroidery", d.Embroidery),
		SizeSet:    norm("size_set", d.SizeSet),
		VAP:        norm("vap", d.VAP),
		Feeding:    norm("feeding", d.Feeding),
	}
}

// cleanJSON strips markdown code fences and trims to the outermost JSON
// object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
