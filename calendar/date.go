/*
Package calendar provides the calendar-date arithmetic used by the coverage engine.

PURPOSE:
  Schedules, holidays and tenure limits are all expressed in calendar days.
  Everything here works in calendar-date space (year, month, day) and never in
  instant/timezone space, so a week boundary or a month boundary can never
  drift by a day because of a UTC offset.

KEY CONCEPTS:
  Date:     A midnight-normalized calendar date. Equality is by calendar day.
  Period:   An inclusive [Start, End] range of dates.
  Quarter:  (year, 1..4) and the ordered week starts covering it.
  Holiday:  A named, observed date produced by a HolidayCalendar.

WIRE FORMAT:
  Dates cross every boundary (JSON, SQL, query strings) as "YYYY-MM-DD".

SEE ALSO:
  - week.go: week start / quarter enumeration
  - holiday.go: US federal holiday rules
*/
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout is the only textual representation of a Date.
const Layout = "2006-01-02"

// =============================================================================
// DATE - Calendar day, no time of day, no zone
// =============================================================================

// Date is a calendar date stored as UTC midnight.
// The zero value is "unset"; use IsZero to test for it.
type Date struct {
	t time.Time
}

// NewDate builds a Date from components. Out-of-range components normalize
// the same way time.Date does (e.g. month 13 is January of the next year).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar components of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: parse date %q: %w", ErrInvalidCalendarInput, s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.t.After(other.t) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.t.Before(other.t) }

// Compare returns -1, 0 or +1. Suitable for slices.SortFunc.
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return NewDate(d.Year(), d.Month(), d.Day()+n) }

// AddMonths moves by whole months, clamping the day to the target month's
// length (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := NewDate(d.Year(), d.Month()+time.Month(n), 1)
	day := d.Day()
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Time returns the date as UTC midnight.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// MarshalText implements encoding.TextMarshaler ("YYYY-MM-DD").
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. The zero Date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner for TEXT, BLOB, timestamp and NULL columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		u := v.UTC()
		*d = NewDate(u.Year(), u.Month(), u.Day())
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

// =============================================================================
// MONTH UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// MonthsElapsed returns the whole calendar months between from and to.
//
// A month counts once its anniversary day is reached; when the anniversary
// day does not exist in the target month it clamps to the month's last day.
//
//	MonthsElapsed(2025-01-15, 2025-03-01) == 1
//	MonthsElapsed(2025-01-01, 2026-01-01) == 12
//	MonthsElapsed(2025-01-31, 2025-02-28) == 1
//
// The result is negative when to is before from.
func MonthsElapsed(from, to Date) int {
	if to.Before(from) {
		return -MonthsElapsed(to, from)
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if from.AddMonths(months).After(to) {
		months--
	}
	return months
}
