/*
ledger.go - Record construction and status transitions

PURPOSE:
  Constructors validate new records before they enter the ledger, and the
  approve/reject operations enforce the payment status machine:

    pending_approval --approve--> paid
    pending_approval --reject---> rejected

  Approving an already-paid payment (or rejecting an already-rejected one)
  is an idempotent no-op. Every other transition is a StateError: acting
  on a charge as if it were a payment, approving a rejected payment,
  rejecting a paid one.

ERROR HANDLING:
  - Non-positive amount: ValidationError, surfaced synchronously
  - Unknown record id:   NotFoundError
  - Illegal transition:  StateError

SEE ALSO:
  - balance.go: Recompute runs after every mutation here
  - engine/engine.go: Wraps these with write-through persistence
*/
package ledger

import (
	"github.com/dojokit/academy-engine/academy"
)

// =============================================================================
// RECORD CONSTRUCTORS
// =============================================================================

// NewCharge builds a charge record. Charges are terminal "charged"
// immediately; there is no approval flow for money owed.
func NewCharge(academyID academy.AcademyID, studentID academy.StudentID, amount academy.Money, category string, date academy.Date) (Record, error) {
	if !amount.IsPositive() {
		return Record{}, academy.NewValidationError("amount", "charge amount must be positive")
	}
	if category == "" {
		return Record{}, academy.NewValidationError("category", "required")
	}
	return Record{
		ID:        NewRecordID(),
		AcademyID: academyID,
		StudentID: studentID,
		Kind:      KindCharge,
		Amount:    amount,
		Date:      date,
		Category:  category,
		Status:    StatusCharged,
	}, nil
}

// NewPayment builds a payment record. System-generated payments are paid
// immediately; user-recorded ones await explicit approval.
func NewPayment(academyID academy.AcademyID, studentID academy.StudentID, amount academy.Money, method string, date academy.Date, systemGenerated bool) (Record, error) {
	if !amount.IsPositive() {
		return Record{}, academy.NewValidationError("amount", "payment amount must be positive")
	}
	status := StatusPendingApproval
	if systemGenerated {
		status = StatusPaid
	}
	return Record{
		ID:        NewRecordID(),
		AcademyID: academyID,
		StudentID: studentID,
		Kind:      KindPayment,
		Amount:    amount,
		Date:      date,
		Method:    method,
		Status:    status,
	}, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// Approve moves a pending payment to paid, in place. Idempotent when the
// payment is already paid.
func Approve(records []Record, id academy.RecordID) error {
	return transition(records, id, "approve", StatusPaid)
}

// Reject moves a pending payment to rejected, in place. Idempotent when
// the payment is already rejected.
func Reject(records []Record, id academy.RecordID) error {
	return transition(records, id, "reject", StatusRejected)
}

func transition(records []Record, id academy.RecordID, action string, target RecordStatus) error {
	rec := find(records, id)
	if rec == nil {
		return &academy.NotFoundError{Kind: "record", ID: string(id)}
	}
	if rec.Kind != KindPayment {
		return &academy.StateError{RecordID: id, Status: string(rec.Status), Action: action + " a charge"}
	}
	switch rec.Status {
	case target:
		return nil // already there
	case StatusPendingApproval:
		rec.Status = target
		return nil
	default:
		return &academy.StateError{RecordID: id, Status: string(rec.Status), Action: action}
	}
}

func find(records []Record, id academy.RecordID) *Record {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ForStudent filters the record set down to one student, preserving order.
func ForStudent(records []Record, studentID academy.StudentID) []Record {
	var out []Record
	for _, r := range records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}

// InMonth filters the record set down to one calendar month.
func InMonth(records []Record, month academy.Date) []Record {
	var out []Record
	for _, r := range records {
		if r.Date.SameMonth(month) {
			out = append(out, r)
		}
	}
	return out
}

// HasChargeIn reports whether the student already carries a charge of the
// given category in the given month. This is the duplicate guard used by
// both the billing and late-fee automation passes.
func HasChargeIn(records []Record, studentID academy.StudentID, category string, month academy.Date) bool {
	for _, r := range records {
		if r.StudentID == studentID && r.IsChargeIn(category, month) {
			return true
		}
	}
	return false
}
