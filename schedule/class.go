/*
Package schedule materializes recurring classes into concrete calendar
occurrences.

PURPOSE:
  A ClassDefinition says "Taekwondo, Monday and Wednesday, 18:00-19:00,
  with Master Kim". The calendar shows concrete occurrences: one per
  matching date inside the rolling window, adjusted by date-scoped
  SessionExceptions (cancel, reschedule, move). One-off events (exams,
  tournaments) are emitted alongside.

KEY CONCEPTS IN THIS FILE (class.go):
  - ClassDefinition: The recurring template
  - SessionException: A date-scoped override; at most one per (class, date)
  - OneOffEvent: A single dated event, independent of recurrence
  - CalendarInstance: One derived occurrence; never authoritative

INVARIANTS:
  1. At most one exception per (class, date); a new one replaces the old
  2. A move's origin date never also renders as a normal occurrence
  3. Instances are regenerated wholesale on every materialization pass

SEE ALSO:
  - resolver.go: Per-date occurrence decision
  - materializer.go: Drives the resolver across the window
  - window.go: The rolling date window
*/
package schedule

import (
	"time"

	"github.com/dojokit/academy-engine/academy"
)

// =============================================================================
// SESSION EXCEPTION - Date-scoped override of a class's default schedule
// =============================================================================

type ExceptionKind string

const (
	// ExceptionCancel keeps the occurrence on the calendar, marked cancelled.
	ExceptionCancel ExceptionKind = "cancel"

	// ExceptionReschedule overrides time and/or instructor on the same date.
	ExceptionReschedule ExceptionKind = "reschedule"

	// ExceptionMove relocates the occurrence to MovedTo. The origin date
	// renders nothing; the target date renders regardless of weekday.
	ExceptionMove ExceptionKind = "move"
)

// SessionException overrides one date of a recurring class.
type SessionException struct {
	Date       academy.Date       `json:"date"`
	Kind       ExceptionKind      `json:"kind"`
	StartTime  *academy.ClockTime `json:"start_time,omitempty"`
	EndTime    *academy.ClockTime `json:"end_time,omitempty"`
	Instructor *string            `json:"instructor,omitempty"`
	MovedTo    *academy.Date      `json:"moved_to,omitempty"`
}

// Validate rejects malformed exceptions before they reach the class.
func (e SessionException) Validate() error {
	switch e.Kind {
	case ExceptionCancel, ExceptionReschedule:
	case ExceptionMove:
		if e.MovedTo == nil {
			return academy.NewValidationError("moved_to", "move exception requires a target date")
		}
		if e.MovedTo.Equal(e.Date) {
			return academy.NewValidationError("moved_to", "move target must differ from origin date")
		}
	default:
		return academy.NewValidationError("kind", "unknown exception kind "+string(e.Kind))
	}
	if e.StartTime != nil && e.EndTime != nil && !e.StartTime.Before(*e.EndTime) {
		return academy.NewValidationError("end_time", "end time must be after start time")
	}
	return nil
}

// =============================================================================
// CLASS DEFINITION - The recurring template
// =============================================================================

type ClassDefinition struct {
	ID         academy.ClassID    `json:"id"`
	AcademyID  academy.AcademyID  `json:"academy_id"`
	Name       string             `json:"name"`
	Weekdays   []time.Weekday     `json:"weekdays"`
	StartTime  academy.ClockTime  `json:"start_time"`
	EndTime    academy.ClockTime  `json:"end_time"`
	Instructor string             `json:"instructor"`
	Exceptions []SessionException `json:"exceptions,omitempty"`
}

func (c ClassDefinition) Validate() error {
	if c.Name == "" {
		return academy.NewValidationError("name", "required")
	}
	if len(c.Weekdays) == 0 {
		return academy.NewValidationError("weekdays", "at least one weekday required")
	}
	if !c.StartTime.Before(c.EndTime) {
		return academy.NewValidationError("end_time", "end time must be after start time")
	}
	return nil
}

// MeetsOn reports whether the class's weekday set contains w.
func (c ClassDefinition) MeetsOn(w time.Weekday) bool {
	for _, d := range c.Weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// ExceptionOn returns the exception keyed to the given date, if any.
func (c ClassDefinition) ExceptionOn(d academy.Date) *SessionException {
	for i := range c.Exceptions {
		if c.Exceptions[i].Date.Equal(d) {
			return &c.Exceptions[i]
		}
	}
	return nil
}

// SetException installs an exception, replacing any existing one for the
// same date. At most one exception per (class, date).
func (c *ClassDefinition) SetException(e SessionException) {
	for i := range c.Exceptions {
		if c.Exceptions[i].Date.Equal(e.Date) {
			c.Exceptions[i] = e
			return
		}
	}
	c.Exceptions = append(c.Exceptions, e)
}

// =============================================================================
// ONE-OFF EVENT - Single dated event, independent of recurrence
// =============================================================================

type EventCategory string

const (
	EventExam       EventCategory = "exam"
	EventTournament EventCategory = "tournament"
	EventGeneric    EventCategory = "generic"
)

type OneOffEvent struct {
	ID        academy.EventID    `json:"id"`
	AcademyID academy.AcademyID  `json:"academy_id"`
	Name      string             `json:"name"`
	Date      academy.Date       `json:"date"`
	StartTime academy.ClockTime  `json:"start_time"`
	EndTime   *academy.ClockTime `json:"end_time,omitempty"` // default: one hour
	Category  EventCategory      `json:"category"`
}

func (e OneOffEvent) Validate() error {
	if e.Name == "" {
		return academy.NewValidationError("name", "required")
	}
	switch e.Category {
	case EventExam, EventTournament, EventGeneric:
	default:
		return academy.NewValidationError("category", "unknown event category "+string(e.Category))
	}
	if e.EndTime != nil && !e.StartTime.Before(*e.EndTime) {
		return academy.NewValidationError("end_time", "end time must be after start time")
	}
	return nil
}

// End returns the event's end time, defaulting to one hour after start.
func (e OneOffEvent) End() academy.ClockTime {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.AddHours(1)
}

// =============================================================================
// CALENDAR INSTANCE - Derived occurrence, never authoritative
// =============================================================================

type InstanceStatus string

const (
	InstanceActive      InstanceStatus = "active"
	InstanceCancelled   InstanceStatus = "cancelled"
	InstanceRescheduled InstanceStatus = "rescheduled"
)

// CalendarInstance is one concrete calendar appearance. Identity is
// (ClassID, Date) for class occurrences, or EventID for events. Instances
// are regenerated on every materialization pass and never mutated directly.
type CalendarInstance struct {
	ClassID    academy.ClassID `json:"class_id,omitempty"`
	EventID    academy.EventID `json:"event_id,omitempty"`
	Title      string          `json:"title"`
	Date       academy.Date    `json:"date"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Instructor string          `json:"instructor,omitempty"`
	Status     InstanceStatus  `json:"status"`
	Category   string          `json:"category"` // "class" or the event category
}
