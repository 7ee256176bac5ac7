/*
materializer.go - Full-calendar materialization pass

PURPOSE:
  Drives the per-class resolver across every date in the rolling window
  and emits one instance per one-off event, producing the complete derived
  calendar-instance set.

RECOMPUTE, DON'T PATCH:
  Materialize is a pure, total function of (classes, events, window). It
  replaces the entire derived set rather than incrementally patching it,
  which keeps the calendar consistent under arbitrary upstream edits
  (cancel-after-move, move-after-cancel, class deletion). Materializing
  twice with identical inputs yields structurally identical output.

ORDERING:
  Output is sorted by (date, start time, title) so repeated passes are
  byte-for-byte comparable and the API returns a stable ordering.

SEE ALSO:
  - resolver.go: Per-date decision
  - engine/engine.go: Invokes a pass after every schedule mutation
*/
package schedule

import (
	"sort"

	"github.com/dojokit/academy-engine/academy"
)

// =============================================================================
// SNAPSHOT - Materialization input
// =============================================================================

// Snapshot is the authoritative input of one materialization pass.
// Exceptions travel embedded in their class definitions.
type Snapshot struct {
	Classes []ClassDefinition
	Events  []OneOffEvent
}

// =============================================================================
// MATERIALIZER
// =============================================================================

// Materialize produces the full calendar-instance set for the window.
func Materialize(snap Snapshot, window Window) []CalendarInstance {
	var instances []CalendarInstance

	for _, class := range snap.Classes {
		resolver := NewResolver(class)
		for d := window.Start; d.BeforeOrEqual(window.End); d = d.AddDays(1) {
			if inst, ok := resolver.Resolve(d); ok {
				instances = append(instances, inst)
			}
		}
	}

	for _, event := range snap.Events {
		if !window.Contains(event.Date) {
			continue
		}
		instances = append(instances, eventInstance(event))
	}

	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Title < b.Title
	})

	return instances
}

// InstancesOn filters a materialized set down to one date.
func InstancesOn(instances []CalendarInstance, date academy.Date) []CalendarInstance {
	var out []CalendarInstance
	for _, inst := range instances {
		if inst.Date.Equal(date) {
			out = append(out, inst)
		}
	}
	return out
}

func eventInstance(event OneOffEvent) CalendarInstance {
	return CalendarInstance{
		EventID:  event.ID,
		Title:    event.Name,
		Date:     event.Date,
		Start:    event.Date.At(event.StartTime),
		End:      event.Date.At(event.End()),
		Status:   InstanceActive,
		Category: string(event.Category),
	}
}
