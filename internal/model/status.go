package model

import "time"

// DeriveStatus computes the production status for one order line from its
// stage dates and shipping date, evaluated against now.
//
// Rules, in order:
//  1. No parseable stage dates at all → pending. This short-circuits even
//     when a shipping date exists, past or future. The shipping date is not
//     a stage, but once at least one stage exists it joins the elapsed/future
//     counts below.
//  2. Shipping date in the past while some counted date is still in the
//     future → delayed. Checked before the completed rule.
//  3. Every counted date elapsed → completed.
//  4. At least one counted date elapsed → in_production.
//  5. Otherwise → pending.
//
// Unparseable individual dates are treated as absent, never as an error.
func DeriveStatus(dates StageDates, now time.Time) Status {
	// Compare on calendar days; parsed dates carry no time component.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var elapsed, total int
	for _, raw := range dates.StageValues() {
		t, ok := ParseDate(raw)
		if !ok {
			continue
		}
		total++
		if !t.After(today) {
			elapsed++
		}
	}

	if total == 0 {
		return StatusPending
	}

	ship, shipKnown := ParseDate(dates.Shipping)
	if shipKnown {
		total++
		if !ship.After(today) {
			elapsed++
		}
	}

	if shipKnown && ship.Before(today) && elapsed < total {
		return StatusDelayed
	}

	if elapsed == total {
		return StatusCompleted
	}
	if elapsed > 0 {
		return StatusInProduction
	}
	return StatusPending
}
