package coverage

import (
	"cmp"
	"slices"
	"strings"
)

// =============================================================================
// ROSTER ORDERING
// =============================================================================

// compareNames orders case-insensitively, falling back to the raw string so
// the order is total.
func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// OrderedMembers returns a team's members with the lead first, then the rest
// by case-insensitive name. A lead who is not a member is not added.
func OrderedMembers(t Team) []Person {
	out := make([]Person, 0, len(t.Members))
	var others []Person
	for _, m := range t.Members {
		if m.ID == t.LeadID && len(out) == 0 {
			out = append(out, m)
			continue
		}
		others = append(others, m)
	}
	slices.SortStableFunc(others, func(a, b Person) int {
		if c := compareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return append(out, others...)
}

// SortTeams orders teams case-insensitively by name.
func SortTeams(teams []Team) {
	slices.SortStableFunc(teams, func(a, b Team) int {
		if c := compareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortProjects orders the catalog case-insensitively by name.
func SortProjects(projects []Project) {
	slices.SortStableFunc(projects, func(a, b Project) int {
		if c := compareNames(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
