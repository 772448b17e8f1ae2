package coverage

import (
	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// COVERAGE GAPS
// =============================================================================

// SentinelIDs returns the IDs of catalog projects whose name matches
// sentinel case-insensitively. Empty when no such project exists.
func SentinelIDs(projects []Project, sentinel string) map[ProjectID]bool {
	ids := make(map[ProjectID]bool)
	for _, p := range projects {
		if p.Matches(sentinel) {
			ids[p.ID] = true
		}
	}
	return ids
}

// CoverageGaps returns the weeks, in input order, in which nobody is
// assigned to the sentinel project. Weeks are expected to be week starts
// under the same convention as the assignments.
//
// If the catalog has no project named sentinel, every week is a gap.
func CoverageGaps(assignments []Assignment, projects []Project, sentinel string, weeks []calendar.Date) []calendar.Date {
	covered := coveredWeeks(assignments, projects, sentinel)
	gaps := make([]calendar.Date, 0, len(weeks))
	for _, w := range weeks {
		if !covered[w] {
			gaps = append(gaps, w)
		}
	}
	return gaps
}

func coveredWeeks(assignments []Assignment, projects []Project, sentinel string) map[calendar.Date]bool {
	sentinels := SentinelIDs(projects, sentinel)
	covered := make(map[calendar.Date]bool)
	for _, a := range assignments {
		if sentinels[a.Project] {
			covered[a.WeekStart] = true
		}
	}
	return covered
}

// CoverageGaps runs gap detection over the grid's current cells and catalog.
// Weeks are normalized before lookup; the caller's values are returned.
func (g *Grid) CoverageGaps(sentinel string, weeks []calendar.Date) []calendar.Date {
	covered := coveredWeeks(g.Assignments(), g.Projects(), sentinel)
	gaps := make([]calendar.Date, 0, len(weeks))
	for _, w := range weeks {
		if !covered[g.normalize(w)] {
			gaps = append(gaps, w)
		}
	}
	return gaps
}
