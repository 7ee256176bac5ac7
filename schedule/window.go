package schedule

import "github.com/dojokit/academy-engine/academy"

// =============================================================================
// WINDOW - The rolling date range to materialize
// =============================================================================

// Window is the date range [Start, End] the materializer covers. The
// calendar is a rolling view: a fixed number of months behind and ahead of
// today, recomputed on every pass.
type Window struct {
	Start academy.Date
	End   academy.Date
}

// Default window: two months back, ten months forward.
const (
	defaultMonthsBack    = 2
	defaultMonthsForward = 10
)

// RollingWindow returns the default window anchored at the given date.
func RollingWindow(today academy.Date) Window {
	return Window{
		Start: today.AddMonths(-defaultMonthsBack),
		End:   today.AddMonths(defaultMonthsForward),
	}
}

func (w Window) Contains(d academy.Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Days returns every date in the window, in order.
func (w Window) Days() []academy.Date {
	var days []academy.Date
	for d := w.Start; d.BeforeOrEqual(w.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}
