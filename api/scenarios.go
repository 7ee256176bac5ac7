/*
scenarios.go - Demo scenario loader for testing and demonstrations

PURPOSE:

	Populates an academy with realistic data for demos: a weekly class
	grid, a roster with enrollments, a few schedule exceptions, an exam
	event, and enough ledger activity to show every balance state.

HOW THE SCENARIO WORKS:
 1. Define recurring classes (adults Mon/Wed, kids Tue/Thu, sparring Sat)
 2. Register students and enroll them
 3. Add schedule exceptions (one cancel, one move)
 4. Add an exam event inside the rolling window
 5. Record tuition charges and payments so the roster shows active,
    debtor and exam-ready students side by side

USAGE VIA API:

	POST /api/scenarios/load

NOTE:

	The scenario is additive - it does not clear existing data. Only use
	in development/demo environments.

SEE ALSO:
  - server.go: Route registration
  - engine/engine.go: The commands the loader drives
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// LoadScenario seeds the demo academy.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.loadDemoScenario(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": "demo"})
}

func (h *Handler) loadDemoScenario(ctx context.Context) error {
	e := h.Engine
	actor := academy.System
	today := academy.Today()

	// 1. Weekly class grid
	classes := []schedule.ClassDefinition{
		{
			ID:         "class-adults",
			Name:       "Adults",
			Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
			StartTime:  academy.ClockTime{Hour: 19, Minute: 0},
			EndTime:    academy.ClockTime{Hour: 20, Minute: 30},
			Instructor: "Sensei Marta",
		},
		{
			ID:         "class-kids",
			Name:       "Kids",
			Weekdays:   []time.Weekday{time.Tuesday, time.Thursday},
			StartTime:  academy.ClockTime{Hour: 17, Minute: 30},
			EndTime:    academy.ClockTime{Hour: 18, Minute: 30},
			Instructor: "Sensei Diego",
		},
		{
			ID:         "class-sparring",
			Name:       "Open Sparring",
			Weekdays:   []time.Weekday{time.Saturday},
			StartTime:  academy.ClockTime{Hour: 10, Minute: 0},
			EndTime:    academy.ClockTime{Hour: 12, Minute: 0},
			Instructor: "Sensei Marta",
		},
	}
	for _, c := range classes {
		if _, err := e.DefineClass(ctx, actor, c); err != nil {
			return fmt.Errorf("scenario class %s: %w", c.ID, err)
		}
	}

	// 2. Roster
	type seedStudent struct {
		id      academy.StudentID
		name    string
		classes []academy.ClassID
	}
	students := []seedStudent{
		{"student-ana", "Ana Torres", []academy.ClassID{"class-adults", "class-sparring"}},
		{"student-leo", "Leo Fuentes", []academy.ClassID{"class-adults"}},
		{"student-mia", "Mia Castillo", []academy.ClassID{"class-kids"}},
		{"student-raul", "Raul Ortega", []academy.ClassID{"class-adults"}},
	}
	for _, s := range students {
		if _, err := e.RegisterStudent(ctx, actor, academy.Student{ID: s.id, Name: s.name}); err != nil {
			return fmt.Errorf("scenario student %s: %w", s.id, err)
		}
		for _, c := range s.classes {
			if err := e.Enroll(ctx, actor, s.id, c); err != nil {
				return fmt.Errorf("scenario enroll %s: %w", s.id, err)
			}
		}
	}

	// 3. Exceptions: cancel next Monday's adults session, move the one
	// after to Friday of that week.
	nextMonday := nextWeekday(today, time.Monday)
	movedFrom := nextMonday.AddDays(7)
	movedTo := movedFrom.AddDays(4)
	if err := e.ModifySessionException(ctx, actor, "class-adults", schedule.SessionException{
		Date: nextMonday,
		Kind: schedule.ExceptionCancel,
	}); err != nil {
		return err
	}
	if err := e.ModifySessionException(ctx, actor, "class-adults", schedule.SessionException{
		Date:    movedFrom,
		Kind:    schedule.ExceptionMove,
		MovedTo: &movedTo,
	}); err != nil {
		return err
	}

	// 4. Exam event in three weeks
	examDate := today.AddDays(21)
	if _, err := e.AddEvent(ctx, actor, schedule.OneOffEvent{
		ID:        "event-belt-exam",
		Name:      "Belt Exam",
		Date:      examDate,
		StartTime: academy.ClockTime{Hour: 11, Minute: 0},
		Category:  schedule.EventExam,
	}); err != nil {
		return err
	}

	// 5. Ledger activity
	tuition := e.Settings().Payments.MonthlyTuition
	month := today.StartOfMonth()

	// Ana: charged and fully paid (payment auto-approved here to land
	// her back on active).
	if _, err := e.RecordCharge(ctx, actor, "student-ana", tuition, ledger.CategoryTuition, month); err != nil {
		return err
	}
	anaPayment, err := e.RecordPayment(ctx, actor, "student-ana", tuition, "transfer", today)
	if err != nil {
		return err
	}
	if err := e.ApprovePayment(ctx, actor, anaPayment.ID); err != nil {
		return err
	}

	// Leo: charged, unpaid - shows up as debtor.
	if _, err := e.RecordCharge(ctx, actor, "student-leo", tuition, ledger.CategoryTuition, month); err != nil {
		return err
	}

	// Raul: charged, payment submitted but still pending approval.
	if _, err := e.RecordCharge(ctx, actor, "student-raul", tuition, ledger.CategoryTuition, month); err != nil {
		return err
	}
	if _, err := e.RecordPayment(ctx, actor, "student-raul", tuition, "cash", today); err != nil {
		return err
	}

	// Mia: promoted ahead of the exam.
	if err := e.SetStudentStatus(ctx, actor, "student-mia", academy.StatusExamReady); err != nil {
		return err
	}

	return nil
}

// nextWeekday returns the first date strictly after from that falls on day.
func nextWeekday(from academy.Date, day time.Weekday) academy.Date {
	d := from.AddDays(1)
	for d.Weekday() != day {
		d = d.AddDays(1)
	}
	return d
}
