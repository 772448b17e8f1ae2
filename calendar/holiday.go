package calendar

import (
	"sync"
	"time"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a named day off. Date is the observed date; Nominal is the date
// the rule produced before any weekend shift.
type Holiday struct {
	Name     string `json:"name"`
	Date     Date   `json:"date"`
	Nominal  Date   `json:"nominal"`
	Observed bool   `json:"observed"`
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	// HolidaysForYear returns the year's holidays in definition order.
	HolidaysForYear(year int) []Holiday

	// HolidaysInWeek returns the names of holidays whose observed date falls
	// in [weekStart, weekStart+6], in definition order.
	HolidaysInWeek(weekStart Date) []string
}

// NoHolidays is a calendar without holidays.
type NoHolidays struct{}

func (NoHolidays) HolidaysForYear(int) []Holiday { return nil }
func (NoHolidays) HolidaysInWeek(Date) []string  { return nil }

// holidayRule derives one holiday's nominal date for a year.
type holidayRule struct {
	name    string
	nominal func(year int) Date
	observe bool
}

func fixed(month time.Month, day int) func(int) Date {
	return func(year int) Date { return NewDate(year, month, day) }
}

func nth(month time.Month, weekday time.Weekday, n int) func(int) Date {
	return func(year int) Date { return MustNthWeekdayOfMonth(year, month, weekday, n) }
}

func last(month time.Month, weekday time.Weekday) func(int) Date {
	return func(year int) Date { return LastWeekdayOfMonth(year, month, weekday) }
}

// usFederalRules is the product's fixed list, in definition order.
// Thanksgiving is always a Thursday and is never shifted.
var usFederalRules = []holidayRule{
	{"New Year's Day", fixed(time.January, 1), true},
	{"MLK Day", nth(time.January, time.Monday, 3), false},
	{"Presidents' Day", nth(time.February, time.Monday, 3), false},
	{"Memorial Day", last(time.May, time.Monday), false},
	{"Juneteenth", fixed(time.June, 19), true},
	{"Independence Day", fixed(time.July, 4), true},
	{"Labor Day", nth(time.September, time.Monday, 1), false},
	{"Columbus Day", nth(time.October, time.Monday, 2), false},
	{"Veterans Day", fixed(time.November, 11), true},
	{"Thanksgiving", nth(time.November, time.Thursday, 4), false},
	{"Christmas Day", fixed(time.December, 25), true},
}

// USFederal is the US federal holiday calendar with observed-date shifting.
// The zero value is ready to use; derived years are memoized.
type USFederal struct {
	mu    sync.RWMutex
	years map[int][]Holiday
}

// NewUSFederal returns an empty, memoizing US federal calendar.
func NewUSFederal() *USFederal {
	return &USFederal{years: make(map[int][]Holiday)}
}

// HolidaysForYear returns exactly len(usFederalRules) holidays for year.
// The returned slice is a copy.
func (c *USFederal) HolidaysForYear(year int) []Holiday {
	c.mu.RLock()
	cached, ok := c.years[year]
	c.mu.RUnlock()
	if !ok {
		cached = deriveUSFederal(year)
		c.mu.Lock()
		if c.years == nil {
			c.years = make(map[int][]Holiday)
		}
		c.years[year] = cached
		c.mu.Unlock()
	}
	out := make([]Holiday, len(cached))
	copy(out, cached)
	return out
}

func deriveUSFederal(year int) []Holiday {
	holidays := make([]Holiday, 0, len(usFederalRules))
	for _, rule := range usFederalRules {
		nominal := rule.nominal(year)
		observed := nominal
		if rule.observe {
			observed = ObservedDate(nominal)
		}
		holidays = append(holidays, Holiday{
			Name:     rule.name,
			Date:     observed,
			Nominal:  nominal,
			Observed: !observed.Equal(nominal),
		})
	}
	return holidays
}

// HolidaysInWeek considers both years when the window straddles Dec/Jan.
func (c *USFederal) HolidaysInWeek(weekStart Date) []string {
	var names []string
	for _, h := range c.HolidaysIn(WeekPeriod(weekStart)) {
		names = append(names, h.Name)
	}
	return names
}

// HolidaysIn returns holidays observed within p, grouped by year and in
// definition order within each year. A period ending on Dec 31 also checks
// the next year, whose New Year's Day may be observed that day.
func (c *USFederal) HolidaysIn(p Period) []Holiday {
	var out []Holiday
	for year := p.Start.Year(); year <= p.End.AddDays(1).Year(); year++ {
		for _, h := range c.HolidaysForYear(year) {
			if p.Contains(h.Date) {
				out = append(out, h)
			}
		}
	}
	return out
}

// IsHoliday reports whether d is an observed holiday.
func (c *USFederal) IsHoliday(d Date) bool {
	for _, h := range c.HolidaysForYear(d.Year()) {
		if h.Date.Equal(d) {
			return true
		}
	}
	// Jan 1 falling on a Saturday is observed on Dec 31 of the prior year.
	if d.Month() == time.December && d.Day() == 31 {
		for _, h := range c.HolidaysForYear(d.Year() + 1) {
			if h.Date.Equal(d) {
				return true
			}
		}
	}
	return false
}

// IsWorkday is false on weekends and observed holidays.
func (c *USFederal) IsWorkday(d Date) bool {
	return !d.IsWeekend() && !c.IsHoliday(d)
}

// =============================================================================
// WEEK ANNOTATION
// =============================================================================

// Week is a week start plus the names of holidays observed in that week.
type Week struct {
	Start    Date     `json:"week_start"`
	Holidays []string `json:"holidays,omitempty"`
}

// AnnotateWeeks pairs each week start with its holiday names.
func AnnotateWeeks(weeks []Date, hc HolidayCalendar) []Week {
	if hc == nil {
		hc = NoHolidays{}
	}
	out := make([]Week, len(weeks))
	for i, ws := range weeks {
		out[i] = Week{Start: ws, Holidays: hc.HolidaysInWeek(ws)}
	}
	return out
}
