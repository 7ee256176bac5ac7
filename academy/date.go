package academy

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar date at day granularity
// =============================================================================

// Date is a calendar date ("2006-01-02"). The academy operates in one fixed
// local zone, so dates carry no zone information and are never converted;
// internally they are anchored to UTC midnight so comparisons and JSON
// round-trips are exact.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "yyyy-mm-dd" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("invalid date %q (use yyyy-mm-dd)", s))
	}
	return Date{t: t}, nil
}

// Today returns the current date in the host's local calendar.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

// SameMonth reports whether both dates fall in the same calendar month.
// This is the granularity used by the automation watermarks.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// At combines the date with a wall-clock time into a single timestamp.
func (d Date) At(c ClockTime) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.t.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// CLOCK TIME - 24-hour wall-clock time ("HH:MM")
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return ClockTime{}, NewValidationError("time", fmt.Sprintf("invalid time %q (use HH:MM)", s))
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, NewValidationError("time", fmt.Sprintf("time %q out of range", s))
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.Hour < o.Hour || (c.Hour == o.Hour && c.Minute < o.Minute)
}

// AddHours returns the time shifted by n hours, capped at end of day.
// Used for the default one-hour event duration.
func (c ClockTime) AddHours(n int) ClockTime {
	h := c.Hour + n
	if h > 23 {
		return ClockTime{Hour: 23, Minute: 59}
	}
	return ClockTime{Hour: h, Minute: c.Minute}
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = ClockTime{}
		return nil
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
