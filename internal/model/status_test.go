package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var statusNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestDeriveStatus_NoDates(t *testing.T) {
	assert.Equal(t, StatusPending, DeriveStatus(StageDates{}, statusNow))
}

func TestDeriveStatus_OnlyFutureShipping(t *testing.T) {
	// A shipping date alone is not a stage; no stages means pending.
	dates := StageDates{Shipping: "2099-01-01"}
	assert.Equal(t, StatusPending, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_OnlyPastShipping(t *testing.T) {
	// Delayed is unreachable without at least one stage date.
	dates := StageDates{Shipping: "2020-01-01"}
	assert.Equal(t, StatusPending, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_PastStageFutureShipping(t *testing.T) {
	dates := StageDates{Fabric: "2020-01-01", Shipping: "2099-01-01"}
	assert.Equal(t, StatusInProduction, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_FutureShippingHoldsBackCompletion(t *testing.T) {
	// The shipping date joins the elapsed/future counts once a stage exists,
	// so a future shipping date keeps even finished stages in production.
	dates := StageDates{
		Fabric:   "2020-01-01",
		Cutting:  "2020-02-01",
		Shipping: "2099-01-01",
	}
	assert.Equal(t, StatusInProduction, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_AllStagesElapsed(t *testing.T) {
	dates := StageDates{
		Fabric:   "2020-01-01",
		Cutting:  "2020-02-01",
		Shipping: "2020-02-01",
	}
	assert.Equal(t, StatusCompleted, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_AllStagesElapsedNoShipping(t *testing.T) {
	dates := StageDates{Fabric: "2020-01-01", Sewing: "2020-03-01"}
	assert.Equal(t, StatusCompleted, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_PastShippingIncompleteStages(t *testing.T) {
	dates := StageDates{
		Fabric:   "2020-01-01",
		Sewing:   "2099-06-01", // still in the future
		Shipping: "2020-01-05",
	}
	assert.Equal(t, StatusDelayed, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_DelayedTakesPrecedenceOverInProduction(t *testing.T) {
	dates := StageDates{
		Fabric:   "2024-01-01",
		Cutting:  "2024-12-01",
		Shipping: "2024-06-01",
	}
	assert.Equal(t, StatusDelayed, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_AllFutureStages(t *testing.T) {
	dates := StageDates{Fabric: "2099-01-01", Cutting: "2099-02-01"}
	assert.Equal(t, StatusPending, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_StageDateToday(t *testing.T) {
	// A stage dated today counts as elapsed.
	dates := StageDates{Fabric: "2024-06-15"}
	assert.Equal(t, StatusCompleted, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_ShippingTodayIsNotPast(t *testing.T) {
	dates := StageDates{
		Fabric:   "2024-01-01",
		Cutting:  "2099-01-01",
		Shipping: "2024-06-15",
	}
	// Shipping today is not strictly before today, so not delayed.
	assert.Equal(t, StatusInProduction, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_UnparseableDatesTreatedAsAbsent(t *testing.T) {
	dates := StageDates{Fabric: "not-a-date", Cutting: "??"}
	assert.Equal(t, StatusPending, DeriveStatus(dates, statusNow))

	dates = StageDates{Fabric: "2020-01-01", Cutting: "garbage"}
	assert.Equal(t, StatusCompleted, DeriveStatus(dates, statusNow))
}

func TestDeriveStatus_Totality(t *testing.T) {
	cases := []StageDates{
		{},
		{Fabric: "2099-01-01", Cutting: "2099-02-01"},
		{Fabric: "2020-01-01", Cutting: "2020-02-01"},
		{Fabric: "2020-01-01", Cutting: "2099-02-01", Shipping: "2020-03-01"},
		{Fabric: "2020-01-01", Cutting: "2099-02-01", Shipping: "2099-03-01"},
	}
	for _, dates := range cases {
		assert.True(t, ValidStatus(DeriveStatus(dates, statusNow)))
	}
}
