/*
settings.go - Per-academy configuration

PURPOSE:
  Holds the payment automation configuration: the monthly tuition amount,
  the day of month billing becomes due, the day of month late fees become
  due, and the late-fee amount.

VALIDATION:
  Configuration errors (e.g. lateFeeDay <= billingDay) are rejected here,
  BEFORE persisting. The automation scheduler assumes settings it reads
  from the store are already valid and never re-discovers configuration
  errors at run time.

SEE ALSO:
  - automation/scheduler.go: Consumes these settings
  - engine/engine.go: UpdatePaymentTriggerDays command
*/
package academy

import "fmt"

// =============================================================================
// PAYMENT SETTINGS
// =============================================================================

// PaymentSettings configures the monthly billing and late-fee automation.
type PaymentSettings struct {
	MonthlyTuition Money `json:"monthly_tuition"`
	BillingDay     int   `json:"billing_day"`
	LateFeeDay     int   `json:"late_fee_day"`
	LateFeeAmount  Money `json:"late_fee_amount"`
}

// Validate rejects malformed payment settings. Called before every persist.
func (p PaymentSettings) Validate() error {
	if p.BillingDay < 1 || p.BillingDay > 28 {
		return NewValidationError("billing_day", fmt.Sprintf("must be between 1 and 28, got %d", p.BillingDay))
	}
	if p.LateFeeDay < 1 || p.LateFeeDay > 28 {
		return NewValidationError("late_fee_day", fmt.Sprintf("must be between 1 and 28, got %d", p.LateFeeDay))
	}
	if p.LateFeeDay <= p.BillingDay {
		return NewValidationError("late_fee_day",
			fmt.Sprintf("late fee day (%d) must be after billing day (%d)", p.LateFeeDay, p.BillingDay))
	}
	if p.MonthlyTuition.IsNegative() {
		return NewValidationError("monthly_tuition", "must not be negative")
	}
	if p.LateFeeAmount.IsNegative() {
		return NewValidationError("late_fee_amount", "must not be negative")
	}
	return nil
}

// Settings is the per-academy configuration collection.
type Settings struct {
	AcademyID AcademyID       `json:"academy_id"`
	Name      string          `json:"name"`
	Payments  PaymentSettings `json:"payment_settings"`
}

// DefaultSettings returns a usable configuration for a new academy:
// billing on the 1st, late fees from the 10th.
func DefaultSettings(academyID AcademyID, name string) Settings {
	return Settings{
		AcademyID: academyID,
		Name:      name,
		Payments: PaymentSettings{
			MonthlyTuition: NewMoney(100),
			BillingDay:     1,
			LateFeeDay:     10,
			LateFeeAmount:  NewMoney(10),
		},
	}
}
