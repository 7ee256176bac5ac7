package automation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/automation"
	"github.com/dojokit/academy-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testSettings() academy.PaymentSettings {
	return academy.PaymentSettings{
		MonthlyTuition: academy.NewMoney(100),
		BillingDay:     1,
		LateFeeDay:     10,
		LateFeeAmount:  academy.NewMoney(10),
	}
}

func testRoster() []academy.Student {
	return []academy.Student{
		{ID: "student-1", AcademyID: "dojo", Name: "Ana", Status: academy.StatusActive},
		{ID: "student-2", AcademyID: "dojo", Name: "Leo", Status: academy.StatusActive},
	}
}

func countCategory(records []ledger.Record, studentID academy.StudentID, category string) int {
	n := 0
	for _, r := range records {
		if r.StudentID == studentID && r.Kind == ledger.KindCharge && r.Category == category {
			n++
		}
	}
	return n
}

// =============================================================================
// CADENCE GATING
// =============================================================================

func TestEvaluate_BillingDueFeesNotYet(t *testing.T) {
	// GIVEN: billingDay=1, lateFeeDay=10, today is the 5th, no prior runs
	// WHEN: Evaluating
	// THEN: Billing runs, late fees do not (their day has not arrived)

	res := automation.Evaluate(automation.Input{
		Today:    academy.NewDate(2025, time.March, 5),
		Settings: testSettings(),
		Students: testRoster(),
	})

	assert.True(t, res.BillingRan)
	assert.False(t, res.FeesRan)
	assert.Len(t, res.Created, 2)
	require.NotNil(t, res.Marks.LastBillingRun)
	assert.True(t, res.Marks.LastBillingRun.Equal(academy.NewDate(2025, time.March, 5)))
	assert.Nil(t, res.Marks.LastFeeRun)
}

func TestEvaluate_BeforeBillingDay_Nothing(t *testing.T) {
	settings := testSettings()
	settings.BillingDay = 15

	res := automation.Evaluate(automation.Input{
		Today:    academy.NewDate(2025, time.March, 5),
		Settings: settings,
		Students: testRoster(),
	})

	assert.False(t, res.BillingRan)
	assert.False(t, res.FeesRan)
	assert.Empty(t, res.Created)
}

func TestEvaluate_WatermarkBlocksSecondRunSameMonth(t *testing.T) {
	// GIVEN: Billing already ran this month
	// WHEN: Evaluating again later the same month
	// THEN: The watermark gates the pass entirely

	first := academy.NewDate(2025, time.March, 1)
	res := automation.Evaluate(automation.Input{
		Today:    academy.NewDate(2025, time.March, 20),
		Settings: testSettings(),
		Students: testRoster(),
		Marks:    automation.Watermarks{LastBillingRun: &first, LastFeeRun: &first},
	})

	assert.False(t, res.BillingRan)
	assert.False(t, res.FeesRan)
}

func TestEvaluate_NewMonthRunsAgain(t *testing.T) {
	lastMonth := academy.NewDate(2025, time.February, 1)
	res := automation.Evaluate(automation.Input{
		Today:    academy.NewDate(2025, time.March, 1),
		Settings: testSettings(),
		Students: testRoster(),
		Marks:    automation.Watermarks{LastBillingRun: &lastMonth},
	})

	assert.True(t, res.BillingRan)
	assert.Len(t, res.Created, 2)
}

// =============================================================================
// BILLING PASS
// =============================================================================

func TestGenerateMonthlyBilling_SkipsInactive(t *testing.T) {
	students := testRoster()
	students[1].Status = academy.StatusInactive

	charges := automation.GenerateMonthlyBilling(
		academy.NewDate(2025, time.March, 1), testSettings(), students, nil)

	require.Len(t, charges, 1)
	assert.Equal(t, academy.StudentID("student-1"), charges[0].StudentID)
	assert.Equal(t, ledger.CategoryTuition, charges[0].Category)
}

func TestGenerateMonthlyBilling_DuplicateGuardPerMonth(t *testing.T) {
	// GIVEN: student-1 already carries a tuition charge this month
	// WHEN: Generating billing
	// THEN: Only student-2 is charged; re-running creates nothing new

	today := academy.NewDate(2025, time.March, 1)
	existing, err := ledger.NewCharge("dojo", "student-1", academy.NewMoney(100), ledger.CategoryTuition, today)
	require.NoError(t, err)
	records := []ledger.Record{existing}

	charges := automation.GenerateMonthlyBilling(today, testSettings(), testRoster(), records)
	require.Len(t, charges, 1)
	assert.Equal(t, academy.StudentID("student-2"), charges[0].StudentID)

	records = append(records, charges...)
	again := automation.GenerateMonthlyBilling(today, testSettings(), testRoster(), records)
	assert.Empty(t, again, "second run inside the month must be a no-op")
}

func TestGenerateMonthlyBilling_BillsDebtors(t *testing.T) {
	// A debtor still accrues next month's tuition; only inactive is exempt.
	students := testRoster()
	students[0].Status = academy.StatusDebtor

	charges := automation.GenerateMonthlyBilling(
		academy.NewDate(2025, time.March, 1), testSettings(), students, nil)
	assert.Len(t, charges, 2)
}

// =============================================================================
// LATE-FEE PASS
// =============================================================================

func TestApplyLateFees_OnlyPositiveBalances(t *testing.T) {
	// GIVEN: student-1 owes 100, student-2 owes nothing
	// WHEN: Applying late fees
	// THEN: Only student-1 gets a fee

	today := academy.NewDate(2025, time.March, 10)
	charge, err := ledger.NewCharge("dojo", "student-1", academy.NewMoney(100), ledger.CategoryTuition, today)
	require.NoError(t, err)

	fees := automation.ApplyLateFees(today, testSettings(), testRoster(), []ledger.Record{charge})

	require.Len(t, fees, 1)
	assert.Equal(t, academy.StudentID("student-1"), fees[0].StudentID)
	assert.Equal(t, ledger.CategoryLateFee, fees[0].Category)
	assert.True(t, fees[0].Amount.Equal(academy.NewMoney(10)))
}

func TestApplyLateFees_DuplicateGuardPerMonth(t *testing.T) {
	// GIVEN: A debtor already carrying this month's late fee
	// WHEN: Applying late fees again within the month
	// THEN: No second fee - invoking the pass twice must not double-charge

	today := academy.NewDate(2025, time.March, 10)
	charge, err := ledger.NewCharge("dojo", "student-1", academy.NewMoney(100), ledger.CategoryTuition, today)
	require.NoError(t, err)
	records := []ledger.Record{charge}

	first := automation.ApplyLateFees(today, testSettings(), testRoster(), records)
	require.Len(t, first, 1)
	records = append(records, first...)

	second := automation.ApplyLateFees(today.AddDays(5), testSettings(), testRoster(), records)
	assert.Empty(t, second)
	assert.Equal(t, 1, countCategory(records, "student-1", ledger.CategoryLateFee))
}

func TestApplyLateFees_SkipsInactiveDebtors(t *testing.T) {
	today := academy.NewDate(2025, time.March, 10)
	students := testRoster()
	students[0].Status = academy.StatusInactive
	charge, err := ledger.NewCharge("dojo", "student-1", academy.NewMoney(100), ledger.CategoryTuition, today)
	require.NoError(t, err)

	fees := automation.ApplyLateFees(today, testSettings(), students, []ledger.Record{charge})
	assert.Empty(t, fees)
}

// =============================================================================
// COMBINED EVALUATION
// =============================================================================

func TestEvaluate_BillingThenFees_SameDay(t *testing.T) {
	// GIVEN: Today is past both trigger days, no prior runs, empty ledger
	// WHEN: Evaluating once
	// THEN: Billing charges land first and the fee pass sees them, so the
	//       freshly billed students are assessed fees in the same call

	res := automation.Evaluate(automation.Input{
		Today:    academy.NewDate(2025, time.March, 15),
		Settings: testSettings(),
		Students: testRoster(),
	})

	assert.True(t, res.BillingRan)
	assert.True(t, res.FeesRan)
	assert.Equal(t, 1, countCategory(res.Created, "student-1", ledger.CategoryTuition))
	assert.Equal(t, 1, countCategory(res.Created, "student-1", ledger.CategoryLateFee))
	assert.Len(t, res.Created, 4)
}

func TestEvaluate_Idempotent_WithAdvancedMarks(t *testing.T) {
	// GIVEN: One evaluation already ran
	// WHEN: Evaluating again with its output as input
	// THEN: Nothing new is created

	in := automation.Input{
		Today:    academy.NewDate(2025, time.March, 15),
		Settings: testSettings(),
		Students: testRoster(),
	}
	first := automation.Evaluate(in)
	require.NotEmpty(t, first.Created)

	in.Records = append(in.Records, first.Created...)
	in.Marks = first.Marks
	second := automation.Evaluate(in)

	assert.False(t, second.BillingRan)
	assert.False(t, second.FeesRan)
	assert.Empty(t, second.Created)
}
