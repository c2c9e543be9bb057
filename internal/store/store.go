// Package store persists canonical production items with natural-key
// deduplication and serves filtered reads.
package store

import (
	"context"

	"github.com/sells-group/prodsheet/internal/model"
)

// Filter specifies criteria for listing production items. Style and
// OrderNumber are case-insensitive substring matches; Status is exact.
type Filter struct {
	Style       string       `json:"style,omitempty"`
	Status      model.Status `json:"status,omitempty"`
	OrderNumber string       `json:"order_number,omitempty"`
	Skip        int          `json:"skip,omitempty"`
	Limit       int          `json:"limit,omitempty"`
}

// RecordError describes a single item that failed to persist.
type RecordError struct {
	OrderNumber string `json:"order_number"`
	Color       string `json:"color"`
	Reason      string `json:"reason"`
}

// UpsertReport aggregates per-record outcomes for one batch. Individual
// write failures are recorded here and do not abort the batch; partial
// success beats all-or-nothing for a multi-hundred-row ingestion.
type UpsertReport struct {
	Stored  int           `json:"stored"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// Store defines the persistence interface for production items.
type Store interface {
	// Upsert inserts or replaces each item keyed by (order_number, color),
	// preserving created_at and refreshing updated_at on replacement.
	Upsert(ctx context.Context, items []model.ProductionItem) (*UpsertReport, error)

	// Query returns items matching the filter, newest first, with
	// skip/limit applied after filtering and ordering.
	Query(ctx context.Context, f Filter) ([]model.ProductionItem, error)

	// Count returns the number of items matching the filter, ignoring
	// pagination.
	Count(ctx context.Context, f Filter) (int, error)

	// StatusCounts maps each status value present to its item count,
	// ordered by status name.
	StatusCounts(ctx context.Context) (map[model.Status]int, error)

	// GetByID returns the item with the storage-assigned id, or nil when
	// absent or malformed. Absence is a negative result, not an error.
	GetByID(ctx context.Context, id string) (*model.ProductionItem, error)

	// DeleteByID removes the item with the given id and reports whether a
	// row was removed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// clampFilter applies the listing bounds shared by both backends.
func clampFilter(f Filter) Filter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
	return f
}
