// Package automation runs the idempotent, date-gated financial passes:
// monthly billing and late-fee assessment, each at most once per
// qualifying calendar month.
package automation

import "github.com/dojokit/academy-engine/academy"

// =============================================================================
// WATERMARKS - Last successful run per cadence
// =============================================================================

// Watermarks record the last date each automation pass ran, at month
// granularity. They are persisted as their own collection, independent of
// the ledger, so a pass that appended charges but failed to persist its
// watermark re-runs safely behind the per-month duplicate guards.
type Watermarks struct {
	AcademyID      academy.AcademyID `json:"academy_id"`
	LastBillingRun *academy.Date     `json:"last_billing_run,omitempty"`
	LastFeeRun     *academy.Date     `json:"last_fee_run,omitempty"`
}

// ranThisMonth reports whether a watermark already covers today's month.
func ranThisMonth(mark *academy.Date, today academy.Date) bool {
	return mark != nil && mark.SameMonth(today)
}
