/*
Package academy provides the core types shared by the engine.

PURPOSE:
  This package contains the domain-agnostic building blocks: typed
  identifiers, the Money value type, the student roster model, and the
  actor/capability model used by every mutating command.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal (never float)
  - Student: A roster entry with a derived financial status
  - Actor: Who is invoking a command, and with what capability

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing student/class IDs
  3. Derived State: Student.Status is recomputed from the ledger, never
     edited directly (except the inactive flag, which is administrative)

SEE ALSO:
  - date.go: Date and ClockTime value types
  - errors.go: Error taxonomy
  - settings.go: Per-academy payment configuration
*/
package academy

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AcademyID string
type StudentID string
type ClassID string
type EventID string
type RecordID string

// =============================================================================
// MONEY - Monetary amount in the academy's single currency
// =============================================================================

type Money struct {
	amount decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{amount: decimal.NewFromFloat(value)}
}

func MoneyFromInt(value int64) Money {
	return Money{amount: decimal.NewFromInt(value)}
}

// MoneyFromString parses a plain decimal string ("150.00").
// Returns zero money on parse failure.
func MoneyFromString(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{amount: decimal.Zero}
	}
	return Money{amount: d}
}

func ZeroMoney() Money { return Money{amount: decimal.Zero} }

func (m Money) Add(o Money) Money        { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money        { return Money{amount: m.amount.Sub(o.amount)} }
func (m Money) Neg() Money               { return Money{amount: m.amount.Neg()} }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }
func (m Money) IsPositive() bool         { return m.amount.IsPositive() }
func (m Money) GreaterThan(o Money) bool { return m.amount.GreaterThan(o.amount) }
func (m Money) LessThan(o Money) bool    { return m.amount.LessThan(o.amount) }
func (m Money) Equal(o Money) bool       { return m.amount.Equal(o.amount) }
func (m Money) String() string           { return m.amount.String() }

// ClampZero returns the amount, floored at zero. Balances are never negative.
func (m Money) ClampZero() Money {
	if m.amount.IsNegative() {
		return ZeroMoney()
	}
	return m
}

func (m Money) MarshalJSON() ([]byte, error) {
	return m.amount.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.amount.UnmarshalJSON(data)
}

// =============================================================================
// STUDENT - Roster entry
// =============================================================================

// StudentStatus is derived from the ledger (active/debtor) or set
// administratively (exam_ready, inactive).
type StudentStatus string

const (
	StatusActive    StudentStatus = "active"
	StatusDebtor    StudentStatus = "debtor"
	StatusExamReady StudentStatus = "exam_ready"
	StatusInactive  StudentStatus = "inactive"
)

// Student is a roster entry. Enrollments list the recurring classes the
// student attends; deleting a class removes it from every roster.
type Student struct {
	ID          StudentID     `json:"id"`
	AcademyID   AcademyID     `json:"academy_id"`
	Name        string        `json:"name"`
	Status      StudentStatus `json:"status"`
	Enrollments []ClassID     `json:"enrollments,omitempty"`
}

// EnrolledIn reports whether the student attends the given class.
func (s Student) EnrolledIn(classID ClassID) bool {
	for _, id := range s.Enrollments {
		if id == classID {
			return true
		}
	}
	return false
}

// =============================================================================
// ACTOR - Capability model for commands
// =============================================================================

// Role describes the capability an actor holds. Only a master may invoke
// mutating operations on classes, ledger, settings, or automation triggers;
// students are limited to reads and narrowly scoped self-service commands.
type Role string

const (
	RoleMaster  Role = "master"
	RoleStudent Role = "student"
)

// Actor identifies who is invoking a command. Every mutating engine
// operation takes an Actor and performs a central capability check,
// raising AuthorizationError instead of silently ignoring the call.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsMaster() bool { return a.Role == RoleMaster }

// IsSelf reports whether the actor is the given student acting on their
// own behalf (self-service payments and enrollment).
func (a Actor) IsSelf(studentID StudentID) bool {
	return a.Role == RoleStudent && a.ID == string(studentID)
}

// System is the actor used by background automation passes.
var System = Actor{ID: "system", Role: RoleMaster}
