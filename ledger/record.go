/*
Package ledger reconstructs each student's financial state from an
append-only record set.

PURPOSE:
  Charges and payments are recorded as immutable ledger entries; balance
  and student status are always derived by folding the record set, never
  stored authoritatively.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Records are never deleted. Status mutates in place
     through the explicit approve/reject transitions only.
  2. Charges are terminal "charged" the moment they are appended.
  3. Payments start "pending_approval" (or "paid" if system-generated)
     and move only via approve/reject to {paid, rejected}.
  4. Balance is never negative: max(0, charges - paid payments).

KEY CONCEPTS IN THIS FILE (record.go):
  - Record: One charge or payment
  - Record IDs: ULIDs, so the append-only log sorts by creation time

SEE ALSO:
  - ledger.go: Mutation operations with transition guards
  - balance.go: The pure balance fold
*/
package ledger

import (
	"github.com/oklog/ulid/v2"

	"github.com/dojokit/academy-engine/academy"
)

// =============================================================================
// RECORD - One charge or payment
// =============================================================================

type RecordKind string

const (
	KindCharge  RecordKind = "charge"
	KindPayment RecordKind = "payment"
)

type RecordStatus string

const (
	// StatusCharged is the terminal status of every charge.
	StatusCharged RecordStatus = "charged"

	// StatusPendingApproval is the initial status of a user-recorded payment.
	StatusPendingApproval RecordStatus = "pending_approval"

	StatusPaid     RecordStatus = "paid"
	StatusRejected RecordStatus = "rejected"
)

// Charge categories with automation semantics. The billing pass keys its
// per-month duplicate guard on CategoryTuition; the late-fee pass on
// CategoryLateFee.
const (
	CategoryTuition = "Mensualidad"
	CategoryLateFee = "Recargo"
	CategoryExam    = "Examen"
)

// Record is one ledger entry. Amounts are always non-negative; the kind
// decides the sign of its contribution to the balance.
type Record struct {
	ID        academy.RecordID  `json:"id"`
	AcademyID academy.AcademyID `json:"academy_id"`
	StudentID academy.StudentID `json:"student_id"`
	Kind      RecordKind        `json:"kind"`
	Amount    academy.Money     `json:"amount"`
	Date      academy.Date      `json:"date"`
	Category  string            `json:"category,omitempty"` // charges
	Method    string            `json:"method,omitempty"`   // payments: cash, transfer, card
	Status    RecordStatus      `json:"status"`
}

// NewRecordID mints a time-ordered record id.
func NewRecordID() academy.RecordID {
	return academy.RecordID(ulid.Make().String())
}

// IsCountedPayment reports whether the record reduces the balance.
// Only approved payments count; pending and rejected ones do not.
func (r Record) IsCountedPayment() bool {
	return r.Kind == KindPayment && r.Status == StatusPaid
}

// IsChargeIn reports whether the record is a charge of the given category
// dated inside the given month. Used by the automation duplicate guards.
func (r Record) IsChargeIn(category string, month academy.Date) bool {
	return r.Kind == KindCharge && r.Category == category && r.Date.SameMonth(month)
}
