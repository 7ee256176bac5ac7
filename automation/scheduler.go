/*
scheduler.go - Watermark-gated billing and late-fee passes

PURPOSE:
  Decides once per day whether a monthly billing pass or a late-fee pass
  is due, and produces the charges each pass creates. Evaluation is a
  synchronous pure computation over an explicit snapshot; the engine
  applies the output (appends charges, advances watermarks, recomputes
  balances).

CADENCE STATE MACHINE:
  Per cadence (billing, late-fee): idle -> due -> running -> idle, all
  within one Evaluate call. A cadence is due when no run covers the
  current month and today's day-of-month has reached the configured
  trigger day. Evaluate is safe to invoke on every start and every sync
  tick - it is a no-op when nothing is due.

DUPLICATE GUARDS:
  Billing: at most one tuition charge (CategoryTuition) per student per
  calendar month, checked against the ledger itself, not the watermark.
  Late fees carry the same per-month-per-category guard. Without it, a
  fee pass invoked twice inside one eligible window (watermark lost,
  manual trigger after an automatic run) would double-charge.

FAILURES:
  None are fatal. Configuration errors (lateFeeDay <= billingDay) are
  rejected before settings persist and never re-checked here.

SEE ALSO:
  - watermark.go: Run gating state
  - ledger/balance.go: Balances consumed by the late-fee eligibility check
*/
package automation

import (
	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/ledger"
)

// =============================================================================
// EVALUATION INPUT / OUTPUT
// =============================================================================

// Input is the snapshot one evaluation runs over.
type Input struct {
	Today    academy.Date
	Settings academy.PaymentSettings
	Students []academy.Student
	Records  []ledger.Record
	Marks    Watermarks
}

// Result is what one evaluation decided. Created holds the new charge
// records; Marks is the advanced watermark state. The engine persists both.
type Result struct {
	Created    []ledger.Record
	Marks      Watermarks
	BillingRan bool
	FeesRan    bool
}

// =============================================================================
// EVALUATE - One scheduler pass
// =============================================================================

// Evaluate runs both cadences against the snapshot. Safe to call on every
// start and poll tick.
func Evaluate(in Input) Result {
	out := Result{Marks: in.Marks}

	if billingDue(in) {
		charges := GenerateMonthlyBilling(in.Today, in.Settings, in.Students, in.Records)
		out.Created = append(out.Created, charges...)
		today := in.Today
		out.Marks.LastBillingRun = &today
		out.BillingRan = true
	}

	if feesDue(in) {
		// Fees assess against the ledger as it stands after billing.
		records := append(append([]ledger.Record{}, in.Records...), out.Created...)
		fees := ApplyLateFees(in.Today, in.Settings, in.Students, records)
		out.Created = append(out.Created, fees...)
		today := in.Today
		out.Marks.LastFeeRun = &today
		out.FeesRan = true
	}

	return out
}

func billingDue(in Input) bool {
	return !ranThisMonth(in.Marks.LastBillingRun, in.Today) && in.Today.Day() >= in.Settings.BillingDay
}

func feesDue(in Input) bool {
	return !ranThisMonth(in.Marks.LastFeeRun, in.Today) && in.Today.Day() >= in.Settings.LateFeeDay
}

// =============================================================================
// BILLING PASS
// =============================================================================

// GenerateMonthlyBilling creates one tuition charge for every non-inactive
// student not yet carrying a tuition charge this calendar month. The
// returned records are meant to be appended as a single batch.
func GenerateMonthlyBilling(today academy.Date, settings academy.PaymentSettings, students []academy.Student, records []ledger.Record) []ledger.Record {
	var created []ledger.Record
	for _, s := range students {
		if s.Status == academy.StatusInactive {
			continue
		}
		if ledger.HasChargeIn(records, s.ID, ledger.CategoryTuition, today) {
			continue
		}
		charge, err := ledger.NewCharge(s.AcademyID, s.ID, settings.MonthlyTuition, ledger.CategoryTuition, today)
		if err != nil {
			// Zero tuition configured; nothing to bill.
			continue
		}
		created = append(created, charge)
	}
	return created
}

// =============================================================================
// LATE-FEE PASS
// =============================================================================

// ApplyLateFees creates one late-fee charge for every non-inactive student
// with a positive balance, at most once per calendar month per student.
func ApplyLateFees(today academy.Date, settings academy.PaymentSettings, students []academy.Student, records []ledger.Record) []ledger.Record {
	balances := ledger.Recompute(students, records)

	var created []ledger.Record
	for _, s := range students {
		if s.Status == academy.StatusInactive {
			continue
		}
		bal, ok := balances[s.ID]
		if !ok || !bal.Balance.IsPositive() {
			continue
		}
		if ledger.HasChargeIn(records, s.ID, ledger.CategoryLateFee, today) {
			continue
		}
		fee, err := ledger.NewCharge(s.AcademyID, s.ID, settings.LateFeeAmount, ledger.CategoryLateFee, today)
		if err != nil {
			continue
		}
		created = append(created, fee)
	}
	return created
}
