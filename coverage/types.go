/*
Package coverage is the weekly assignment engine.

PURPOSE:
  A schedule assigns at most one project to each person for each week.
  The Grid holds those cells for one schedule and one loaded window, applies
  single and bulk changes, and answers the questions screens ask of it:
  who is on what this week, what does this person's quarter look like, and
  which weeks have nobody on the sentinel project ("On Call").

KEY CONCEPTS:
  Cell:       (person, week start) -> project. Unassigned cells are absent.
  Sentinel:   A project matched by case-insensitive name, used for gap detection.
  Snapshot:   What the remote directory returns for a window: rows, roster, catalog.
  Delta:      The cells a mutation changed, for optimistic rendering.

REMOTE BOUNDARY:
  The Grid owns no transport. It talks to a SyncAdapter (sync.go):
    - Directory.Load for hydration
    - Mutator.SetAssignment / BulkSetAssignments for persistence
  One bulk change is always one remote call.

FAILURE POLICY:
  By default a failed remote write leaves the optimistic local value in place
  and returns a *RemoteError. WithRollbackOnFailure restores exactly the
  touched cells instead. Hydration failures keep the last good state.

SEE ALSO:
  - grid.go: the state machine
  - session.go: stale hydration suppression
  - gaps.go, roster.go, stats.go: read-side derivations
*/
package coverage

import (
	"strings"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ScheduleID int64
	PersonID   int64
	ProjectID  int64
	TeamID     int64
)

// NoProject is the "none" value: assigning it clears the cell.
const NoProject ProjectID = 0

// DefaultSentinel is the project name coverage gaps are measured against.
const DefaultSentinel = "On Call"

// =============================================================================
// DIRECTORY ENTITIES
// =============================================================================

// Schedule is a named quarter plan.
type Schedule struct {
	ID      ScheduleID `json:"id"`
	Name    string     `json:"name"`
	Year    int        `json:"year"`
	Quarter int        `json:"quarter"`
}

// CalendarQuarter returns the schedule's quarter.
func (s Schedule) CalendarQuarter() calendar.Quarter {
	return calendar.Quarter{Year: s.Year, Q: s.Quarter}
}

// Person is owned by the external user directory; the engine keys on ID.
type Person struct {
	ID       PersonID `json:"id"`
	Name     string   `json:"name"`
	JobLevel string   `json:"job_level,omitempty"`
}

// ProjectType classifies projects for stats.
type ProjectType string

const (
	TypeClient   ProjectType = "client"
	TypeInternal ProjectType = "internal"
	TypeSupport  ProjectType = "support"
	TypeLeave    ProjectType = "leave"
)

// DisplayName is the label used in charts; unknown types render as-is.
func (t ProjectType) DisplayName() string {
	switch t {
	case TypeClient:
		return "Client"
	case TypeInternal:
		return "Internal"
	case TypeSupport:
		return "Support"
	case TypeLeave:
		return "Leave"
	case "":
		return "Unknown"
	default:
		return string(t)
	}
}

// Project is a catalog entry. Identity is the ID; Name matters only to
// sentinel matching.
type Project struct {
	ID       ProjectID   `json:"id"`
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	Type     ProjectType `json:"type"`
	IsSystem bool        `json:"is_system"`
}

// Matches reports a case-insensitive exact name match.
func (p Project) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(name))
}

// Team groups people under a lead. The lead may or may not appear in Members.
type Team struct {
	ID      TeamID   `json:"id"`
	Name    string   `json:"name"`
	LeadID  PersonID `json:"lead_id"`
	Members []Person `json:"members"`
}

// Assignment is one stored cell.
type Assignment struct {
	Person    PersonID      `json:"person_id"`
	Project   ProjectID     `json:"project_id"`
	WeekStart calendar.Date `json:"week_start"`
}

// cellKey addresses one grid cell.
type cellKey struct {
	person PersonID
	week   calendar.Date
}

// =============================================================================
// DELTAS
// =============================================================================

// CellChange records one cell's value before and after a mutation.
type CellChange struct {
	Person PersonID  `json:"person_id"`
	Before ProjectID `json:"before"`
	After  ProjectID `json:"after"`
}

// Delta is what a mutation changed in one week. Cells whose value did not
// change are omitted.
type Delta struct {
	Week    calendar.Date `json:"week_start"`
	Changes []CellChange  `json:"changes"`
}

// Empty reports whether the mutation was a no-op locally.
func (d Delta) Empty() bool { return len(d.Changes) == 0 }
