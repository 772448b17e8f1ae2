package coverage

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// SCHEDULE STATS - Where did the member-weeks go?
// =============================================================================

// UnassignedLabel names the synthetic bucket for empty cells.
const UnassignedLabel = "Unassigned"

// ProjectStat counts assigned weeks for one project. The Unassigned bucket
// has ProjectID NoProject.
type ProjectStat struct {
	ProjectID ProjectID       `json:"project_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Weeks     int             `json:"weeks"`
	Share     decimal.Decimal `json:"share"`
}

// TypeStat counts assigned weeks for one project type.
type TypeStat struct {
	Type  ProjectType     `json:"type"`
	Label string          `json:"label"`
	Weeks int             `json:"weeks"`
	Share decimal.Decimal `json:"share"`
}

// Stats summarizes a schedule window.
//
//	MemberWeeks = distinct roster members x weeks
//	Unassigned  = max(0, MemberWeeks - Assigned)
type Stats struct {
	MemberWeeks int           `json:"member_weeks"`
	Assigned    int           `json:"assigned"`
	Unassigned  int           `json:"unassigned"`
	ByProject   []ProjectStat `json:"by_project"`
	ByType      []TypeStat    `json:"by_type"`
}

// ComputeStats counts the grid's cells that fall in weeks. Buckets are sorted
// by week count descending, ties by name; Unassigned is appended last when
// non-zero. Cells for projects missing from the catalog count toward
// Assigned but appear in no project bucket.
func ComputeStats(g *Grid, weeks []calendar.Date) Stats {
	inRange := make(map[calendar.Date]bool, len(weeks))
	for _, w := range weeks {
		inRange[g.normalize(w)] = true
	}

	var s Stats
	s.MemberWeeks = len(g.People()) * len(inRange)

	byProject := make(map[ProjectID]int)
	byType := make(map[ProjectType]int)
	for _, a := range g.Assignments() {
		if !inRange[a.WeekStart] {
			continue
		}
		s.Assigned++
		byProject[a.Project]++
		p, _ := g.Project(a.Project)
		byType[p.Type]++
	}
	s.Unassigned = max(0, s.MemberWeeks-s.Assigned)

	for id, n := range byProject {
		p, ok := g.Project(id)
		if !ok {
			continue
		}
		s.ByProject = append(s.ByProject, ProjectStat{
			ProjectID: id, Name: p.Name, Color: p.Color, Weeks: n, Share: share(n, s.MemberWeeks),
		})
	}
	slices.SortFunc(s.ByProject, func(a, b ProjectStat) int {
		if c := cmp.Compare(b.Weeks, a.Weeks); c != 0 {
			return c
		}
		return compareNames(a.Name, b.Name)
	})

	for t, n := range byType {
		s.ByType = append(s.ByType, TypeStat{
			Type: t, Label: t.DisplayName(), Weeks: n, Share: share(n, s.MemberWeeks),
		})
	}
	slices.SortFunc(s.ByType, func(a, b TypeStat) int {
		if c := cmp.Compare(b.Weeks, a.Weeks); c != 0 {
			return c
		}
		return compareNames(a.Label, b.Label)
	})

	if s.Unassigned > 0 {
		unassignedShare := share(s.Unassigned, s.MemberWeeks)
		s.ByProject = append(s.ByProject, ProjectStat{
			ProjectID: NoProject, Name: UnassignedLabel, Color: "unassigned",
			Weeks: s.Unassigned, Share: unassignedShare,
		})
		s.ByType = append(s.ByType, TypeStat{
			Type: ProjectType("unassigned"), Label: UnassignedLabel,
			Weeks: s.Unassigned, Share: unassignedShare,
		})
	}
	return s
}

func share(n, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(int64(total))).Round(4)
}
