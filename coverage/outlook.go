package coverage

import (
	"cmp"
	"slices"
	"time"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// OUTLOOK - who is on call and who is away, this week and next
// =============================================================================

// OutlookHorizonDays is how far past the current week start the upcoming
// leave list looks.
const OutlookHorizonDays = 31

// HolidayLabel names the entries contributed by the holiday calendar.
const HolidayLabel = "US Teams"

// LeaveEntry is one absence: a person on a leave project, or a holiday
// (Person is 0 and Name is HolidayLabel).
type LeaveEntry struct {
	Person PersonID `json:"person_id,omitempty"`
	Name   string   `json:"name"`
	Leave  string   `json:"leave"`
}

// LeaveWeek groups the absences of one week.
type LeaveWeek struct {
	WeekStart calendar.Date `json:"week_start"`
	Entries   []LeaveEntry  `json:"entries"`
}

// Outlook is the near-term view around a given day.
type Outlook struct {
	WeekStart      calendar.Date `json:"week_start"`
	NextWeekStart  calendar.Date `json:"next_week_start"`
	OnCallThisWeek []Person      `json:"on_call_this_week"`
	OnCallNextWeek []Person      `json:"on_call_next_week"`
	LeaveThisWeek  []LeaveEntry  `json:"leave_this_week"`
	UpcomingLeave  []LeaveWeek   `json:"upcoming_leave"`
}

// OutlookWindow is the range a grid must be hydrated with before
// BuildOutlook: the week containing today through the last upcoming week.
func OutlookWindow(today calendar.Date, firstWeekday time.Weekday) calendar.Period {
	weeks := outlookWeeks(today, firstWeekday)
	return calendar.Period{Start: calendar.WeekStart(today, firstWeekday), End: weeks[len(weeks)-1]}
}

// outlookWeeks returns next week's start and every later week start up to
// OutlookHorizonDays past the current week start.
func outlookWeeks(today calendar.Date, firstWeekday time.Weekday) []calendar.Date {
	this := calendar.WeekStart(today, firstWeekday)
	return calendar.WeeksIn(calendar.Period{
		Start: this.AddDays(7),
		End:   this.AddDays(OutlookHorizonDays),
	}, firstWeekday)
}

// BuildOutlook derives the outlook from a hydrated grid. On-call people are
// those assigned to a project matching sentinel; absences are assignments to
// leave-type projects plus holidays. Upcoming weeks without absences are
// omitted.
func BuildOutlook(g *Grid, hc calendar.HolidayCalendar, today calendar.Date, sentinel string) Outlook {
	if hc == nil {
		hc = calendar.NoHolidays{}
	}
	this := g.normalize(today)
	next := this.AddDays(7)

	people := g.People()
	names := make(map[PersonID]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}
	projects := g.Projects()
	sentinels := SentinelIDs(projects, sentinel)
	leave := make(map[ProjectID]string)
	for _, p := range projects {
		if p.Type == TypeLeave {
			leave[p.ID] = p.Name
		}
	}

	out := Outlook{
		WeekStart:      this,
		NextWeekStart:  next,
		OnCallThisWeek: onCallIn(g, this, sentinels, people, names),
		OnCallNextWeek: onCallIn(g, next, sentinels, people, names),
		LeaveThisWeek:  absencesIn(g, hc, this, leave, people, names),
		UpcomingLeave:  []LeaveWeek{},
	}
	for _, ws := range outlookWeeks(today, g.firstWeekday) {
		if entries := absencesIn(g, hc, ws, leave, people, names); len(entries) > 0 {
			out.UpcomingLeave = append(out.UpcomingLeave, LeaveWeek{WeekStart: ws, Entries: entries})
		}
	}
	return out
}

func onCallIn(g *Grid, week calendar.Date, sentinels map[ProjectID]bool, roster []Person, names map[PersonID]string) []Person {
	out := []Person{}
	for _, id := range inRosterOrder(g.ProjectsInWeek(week), roster, func(p ProjectID) bool { return sentinels[p] }) {
		out = append(out, Person{ID: id, Name: names[id]})
	}
	return out
}

func absencesIn(g *Grid, hc calendar.HolidayCalendar, week calendar.Date, leave map[ProjectID]string, roster []Person, names map[PersonID]string) []LeaveEntry {
	cells := g.ProjectsInWeek(week)
	out := []LeaveEntry{}
	for _, id := range inRosterOrder(cells, roster, func(p ProjectID) bool { _, ok := leave[p]; return ok }) {
		out = append(out, LeaveEntry{Person: id, Name: names[id], Leave: leave[cells[id]]})
	}
	for _, name := range hc.HolidaysInWeek(week) {
		out = append(out, LeaveEntry{Name: HolidayLabel, Leave: name})
	}
	return out
}

// inRosterOrder returns the people whose cell satisfies match: roster
// members first in roster order, then anyone else by ID.
func inRosterOrder(cells map[PersonID]ProjectID, roster []Person, match func(ProjectID) bool) []PersonID {
	var out []PersonID
	seen := make(map[PersonID]bool, len(roster))
	for _, p := range roster {
		seen[p.ID] = true
		if match(cells[p.ID]) {
			out = append(out, p.ID)
		}
	}
	var rest []PersonID
	for id, project := range cells {
		if !seen[id] && match(project) {
			rest = append(rest, id)
		}
	}
	slices.SortFunc(rest, cmp.Compare[PersonID])
	return append(out, rest...)
}
