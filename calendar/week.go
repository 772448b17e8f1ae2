package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DefaultFirstWeekday is the product convention: weeks run Monday..Sunday.
const DefaultFirstWeekday = time.Monday

// =============================================================================
// WEEKS
// =============================================================================

// WeekStart normalizes d to the first day of its containing week.
// Dates in the same week always return an identical value.
func WeekStart(d Date, firstWeekday time.Weekday) Date {
	back := (int(d.Weekday()) - int(firstWeekday) + 7) % 7
	return d.AddDays(-back)
}

// WeekPeriod is the inclusive 7-day window [weekStart, weekStart+6].
func WeekPeriod(weekStart Date) Period {
	return Period{Start: weekStart, End: weekStart.AddDays(6)}
}

// ParseWeekday accepts English weekday names ("monday", "Mon").
func ParseWeekday(s string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := wd.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return wd, nil
		}
	}
	return time.Sunday, invalid("ParseWeekday", "unknown weekday %q", s)
}

// =============================================================================
// QUARTERS
// =============================================================================

// Quarter identifies a calendar quarter. Q is 1..4.
type Quarter struct {
	Year int `json:"year"`
	Q    int `json:"quarter"`
}

// QuarterOf returns the quarter containing d.
func QuarterOf(d Date) Quarter {
	return Quarter{Year: d.Year(), Q: (int(d.Month())-1)/3 + 1}
}

// Validate rejects quarters outside 1..4.
func (q Quarter) Validate() error {
	if q.Q < 1 || q.Q > 4 {
		return invalid("Quarter", "quarter %d out of range 1..4", q.Q)
	}
	return nil
}

func (q Quarter) FirstMonth() time.Month { return time.Month((q.Q-1)*3 + 1) }
func (q Quarter) FirstDay() Date         { return NewDate(q.Year, q.FirstMonth(), 1) }
func (q Quarter) LastDay() Date          { return NewDate(q.Year, q.FirstMonth()+3, 1).AddDays(-1) }
func (q Quarter) Period() Period         { return Period{Start: q.FirstDay(), End: q.LastDay()} }

func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

func (q Quarter) Prev() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d %d", q.Q, q.Year)
}

// Weeks enumerates the quarter's week starts. See QuarterWeeks.
func (q Quarter) Weeks(firstWeekday time.Weekday) ([]Date, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	end := q.LastDay()
	var weeks []Date
	for ws := WeekStart(q.FirstDay(), firstWeekday); ws.BeforeOrEqual(end); ws = ws.AddDays(7) {
		weeks = append(weeks, ws)
	}
	return weeks, nil
}

// QuarterWeeks returns every week start whose week intersects the quarter's
// three calendar months, ascending and exactly 7 days apart. The first element
// may fall up to 6 days before the quarter; the last is never after its last day.
//
// The result is freshly allocated on every call.
func QuarterWeeks(year, quarter int, firstWeekday time.Weekday) ([]Date, error) {
	return Quarter{Year: year, Q: quarter}.Weeks(firstWeekday)
}

// WeeksIn enumerates week starts whose week intersects p.
func WeeksIn(p Period, firstWeekday time.Weekday) []Date {
	var weeks []Date
	for ws := WeekStart(p.Start, firstWeekday); ws.BeforeOrEqual(p.End); ws = ws.AddDays(7) {
		weeks = append(weeks, ws)
	}
	return weeks
}

// =============================================================================
// WEEKDAY-OF-MONTH RULES
// =============================================================================

// NthWeekdayOfMonth returns the n-th occurrence (1-based) of weekday in the month.
// Fails with ErrInvalidCalendarInput if n < 1 or the occurrence leaves the month.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) (Date, error) {
	if n < 1 {
		return Date{}, invalid("NthWeekdayOfMonth", "n must be >= 1, got %d", n)
	}
	if month < time.January || month > time.December {
		return Date{}, invalid("NthWeekdayOfMonth", "month %d out of range", month)
	}
	first := StartOfMonth(year, month)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	d := first.AddDays(offset + (n-1)*7)
	if d.Month() != month {
		return Date{}, invalid("NthWeekdayOfMonth", "occurrence %d of %s falls outside %s %d", n, weekday, month, year)
	}
	return d, nil
}

// MustNthWeekdayOfMonth panics on invalid input. Holiday rules only ask for
// occurrences 1..4, which always exist.
func MustNthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) Date {
	d, err := NthWeekdayOfMonth(year, month, weekday, n)
	if err != nil {
		panic(err)
	}
	return d
}

// LastWeekdayOfMonth returns the last occurrence of weekday in the month.
func LastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) Date {
	last := EndOfMonth(year, month)
	back := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDays(-back)
}

// ObservedDate applies the federal observance shift:
// Saturday moves back to Friday, Sunday moves forward to Monday.
func ObservedDate(d Date) Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(-1)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}
