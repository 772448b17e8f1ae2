package calendar

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar dates.
//
// Examples:
//   - A week:       Mon Dec 29 2025 - Sun Jan 4 2026
//   - A quarter:    Jan 1 2026 - Mar 31 2026
//   - A load window: first week start .. last week start of a quarter
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return invalid("Period", "end %s before start %s", p.End, p.Start)
	}
	return nil
}

// Equal compares both bounds by calendar day.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Years returns the distinct calendar years the period touches, ascending.
func (p Period) Years() []int {
	var years []int
	for y := p.Start.Year(); y <= p.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Span returns the period covering every week in weeks, from the first week
// start to the last week start. This is the range the remote directory is
// queried with. ok is false for an empty slice.
func Span(weeks []Date) (p Period, ok bool) {
	if len(weeks) == 0 {
		return Period{}, false
	}
	p = Period{Start: weeks[0], End: weeks[0]}
	for _, w := range weeks[1:] {
		if w.Before(p.Start) {
			p.Start = w
		}
		if w.After(p.End) {
			p.End = w
		}
	}
	return p, true
}
