/*
resolver.go - Per-date occurrence decision for one class

PURPOSE:
  Given a class definition and a date, decide whether an occurrence exists
  that day and which attributes apply, consulting the class's date-scoped
  exceptions.

RESOLUTION ORDER:
  1. Move-in wins. If any exception elsewhere relocates its occurrence TO
     this date, an occurrence renders here with status=rescheduled,
     independent of the class's weekday set.
  2. Weekday match. If the date's weekday is in the class's set, look up
     the exception keyed to this date:
       - none:       default occurrence, status=active
       - move:       nothing renders (it relocated away)
       - cancel:     occurrence renders, status=cancelled (presence, not
                     absence - the calendar shows the cancellation)
       - reschedule: overrides applied, status=rescheduled
  3. Otherwise no occurrence.

MOVE-TARGET INDEX:
  Scanning every exception for one landing on the queried date is O(n)
  per date. The resolver builds a target-date index once per class, so a
  materialization pass resolves each date in O(1).

EDGE CASES:
  - Independent moves from different classes landing on the same date are
    not collision-checked; both render.
  - A cancelled-and-moved-from date never re-renders at its origin: the
    origin lookup finds the move exception and suppresses.
*/
package schedule

import "github.com/dojokit/academy-engine/academy"

// =============================================================================
// RESOLVER - Exception-aware occurrence resolution
// =============================================================================

type Resolver struct {
	class ClassDefinition

	// moveTargets indexes exceptions of kind=move by their target date.
	moveTargets map[string]SessionException
}

// NewResolver builds a resolver for one class, indexing move targets.
func NewResolver(class ClassDefinition) *Resolver {
	r := &Resolver{
		class:       class,
		moveTargets: make(map[string]SessionException),
	}
	for _, exc := range class.Exceptions {
		if exc.Kind == ExceptionMove && exc.MovedTo != nil {
			r.moveTargets[exc.MovedTo.String()] = exc
		}
	}
	return r
}

// Resolve returns the occurrence for the given date, or ok=false when the
// class does not appear that day.
func (r *Resolver) Resolve(date academy.Date) (CalendarInstance, bool) {
	// Move always wins, independent of weekday match.
	if exc, ok := r.moveTargets[date.String()]; ok {
		return r.instance(date, exc, InstanceRescheduled), true
	}

	if !r.class.MeetsOn(date.Weekday()) {
		return CalendarInstance{}, false
	}

	exc := r.class.ExceptionOn(date)
	if exc == nil {
		return r.defaultInstance(date, InstanceActive), true
	}

	switch exc.Kind {
	case ExceptionMove:
		// Relocated away; nothing renders at the origin.
		return CalendarInstance{}, false
	case ExceptionCancel:
		return r.instance(date, *exc, InstanceCancelled), true
	case ExceptionReschedule:
		return r.instance(date, *exc, InstanceRescheduled), true
	default:
		return r.defaultInstance(date, InstanceActive), true
	}
}

func (r *Resolver) defaultInstance(date academy.Date, status InstanceStatus) CalendarInstance {
	return CalendarInstance{
		ClassID:    r.class.ID,
		Title:      r.class.Name,
		Date:       date,
		Start:      date.At(r.class.StartTime),
		End:        date.At(r.class.EndTime),
		Instructor: r.class.Instructor,
		Status:     status,
		Category:   "class",
	}
}

// instance applies an exception's overrides on top of the class defaults.
func (r *Resolver) instance(date academy.Date, exc SessionException, status InstanceStatus) CalendarInstance {
	inst := r.defaultInstance(date, status)
	if exc.StartTime != nil {
		inst.Start = date.At(*exc.StartTime)
	}
	if exc.EndTime != nil {
		inst.End = date.At(*exc.EndTime)
	}
	if exc.Instructor != nil {
		inst.Instructor = *exc.Instructor
	}
	return inst
}
