/*
balance.go - The balance fold

PURPOSE:
  Recompute is the sole source of truth for student balances. It folds the
  whole record set per student:

    balance = max(0, sum(charges) - sum(payments with status=paid))

  and derives the status flip:

    active/exam_ready -> debtor  when balance > 0
    debtor            -> active  when balance returns to 0

  Recompute never elevates a student to exam_ready - that promotion is a
  manual act; only the debtor->active reversal is automatic. Inactive
  students keep their status regardless of balance.

WHY RECOMPUTE-ON-CHANGE?
  There is no stored balance that can drift from the ledger. Every ledger
  mutation re-runs the fold over an explicit snapshot (students, records),
  the same shape as the calendar materializer.

SEE ALSO:
  - record.go: Which records count toward the fold
  - automation/scheduler.go: Eligibility checks consume these balances
*/
package ledger

import "github.com/dojokit/academy-engine/academy"

// =============================================================================
// STUDENT BALANCE - Derived financial state
// =============================================================================

type StudentBalance struct {
	StudentID academy.StudentID     `json:"student_id"`
	Balance   academy.Money         `json:"balance"`
	Status    academy.StudentStatus `json:"status"`
}

// =============================================================================
// RECOMPUTE - Pure fold over (students, records)
// =============================================================================

// Recompute folds the record set into a balance and status per student.
// It is pure: callers apply the resulting statuses to the roster.
func Recompute(students []academy.Student, records []Record) map[academy.StudentID]StudentBalance {
	totals := make(map[academy.StudentID]academy.Money, len(students))
	for _, s := range students {
		totals[s.ID] = academy.ZeroMoney()
	}

	for _, r := range records {
		sum, ok := totals[r.StudentID]
		if !ok {
			// Records for students no longer on the roster are ignored.
			continue
		}
		switch {
		case r.Kind == KindCharge:
			totals[r.StudentID] = sum.Add(r.Amount)
		case r.IsCountedPayment():
			totals[r.StudentID] = sum.Sub(r.Amount)
		}
	}

	balances := make(map[academy.StudentID]StudentBalance, len(students))
	for _, s := range students {
		balance := totals[s.ID].ClampZero()
		balances[s.ID] = StudentBalance{
			StudentID: s.ID,
			Balance:   balance,
			Status:    nextStatus(s.Status, balance),
		}
	}
	return balances
}

// nextStatus applies the automatic flips and nothing else.
func nextStatus(current academy.StudentStatus, balance academy.Money) academy.StudentStatus {
	switch {
	case current == academy.StatusInactive:
		return current
	case balance.IsPositive():
		return academy.StatusDebtor
	case current == academy.StatusDebtor:
		return academy.StatusActive
	default:
		// active and exam_ready keep their standing at zero balance
		return current
	}
}
