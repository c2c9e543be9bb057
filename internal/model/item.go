// Package model holds the domain types for production sheet ingestion.
package model

import "time"

// Status represents the derived production state of an order line.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProduction Status = "in_production"
	StatusCompleted    Status = "completed"
	StatusDelayed      Status = "delayed"
)

// ValidStatus reports whether s is one of the four defined status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProduction, StatusCompleted, StatusDelayed:
		return true
	}
	return false
}

// StageDates holds the per-stage plan dates for one order line, plus the
// shipping date. All values are ISO YYYY-MM-DD strings; empty means absent.
type StageDates struct {
	Shipping   string `json:"shipping,omitempty"`
	Fabric     string `json:"fabric,omitempty"`
	Cutting    string `json:"cutting,omitempty"`
	Sewing     string `json:"sewing,omitempty"`
	Embroidery string `json:"embroidery,omitempty"`
	SizeSet    string `json:"size_set,omitempty"`
	VAP        string `json:"vap,omitempty"` // value-added process
	Feeding    string `json:"feeding,omitempty"`
}

// StageValues returns the production stage dates in declaration order.
// The shipping date is deliberately excluded; it is not a stage.
func (d StageDates) StageValues() []string {
	return []string{d.Fabric, d.Cutting, d.Sewing, d.Embroidery, d.SizeSet, d.VAP, d.Feeding}
}

// ExtractedItem is one order line as returned by the extraction service,
// before status derivation and provenance metadata are attached.
type ExtractedItem struct {
	OrderNumber    string     `json:"order_number"`
	Style          string     `json:"style"`
	Fabric         string     `json:"fabric"`
	Color          string     `json:"color"`
	Quantity       int        `json:"quantity"`
	Dates          StageDates `json:"dates"`
	Supplier       string     `json:"supplier,omitempty"`
	RequiredWeight *float64   `json:"required_weight,omitempty"`
}

// ProductionItem is the canonical persisted record for one order/color line.
// Status is always derived locally from Dates, never taken from upstream.
type ProductionItem struct {
	ID             string     `json:"id,omitempty"`
	OrderNumber    string     `json:"order_number"`
	Style          string     `json:"style"`
	Fabric         string     `json:"fabric"`
	Color          string     `json:"color"`
	Quantity       int        `json:"quantity"`
	Status         Status     `json:"status"`
	Dates          StageDates `json:"dates"`
	Supplier       string     `json:"supplier,omitempty"`
	RequiredWeight *float64   `json:"required_weight,omitempty"`
	SourceFile     string     `json:"source_file"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
