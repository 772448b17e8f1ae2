/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication where the domain types
  are not already the contract. coverage.Snapshot, coverage.Report,
  coverage.Stats, calendar.Week and progress.LevelLimit are served as-is;
  the types below cover request bodies and display-oriented responses.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - client.go: Decodes the same types
*/
package api

import (
	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
	"github.com/warp/coverage-engine/store/sqlite"
)

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduleDTO represents a schedule in API responses.
type ScheduleDTO struct {
	ID      coverage.ScheduleID `json:"id"`
	Name    string              `json:"name"`
	Year    int                 `json:"year"`
	Quarter int                 `json:"quarter"`
	Label   string              `json:"label"`
	Weeks   int                 `json:"weeks"`
	Start   calendar.Date       `json:"start"`
	End     calendar.Date       `json:"end"`
}

// CreateScheduleRequest is the body of POST /api/schedules.
type CreateScheduleRequest struct {
	Name    string `json:"name"`
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
}

// AssignmentRequest is the body of PUT /api/schedules/{id}/assignments.
// The schedule comes from the path.
type AssignmentRequest struct {
	RequestID string             `json:"request_id,omitempty"`
	Person    coverage.PersonID  `json:"person_id"`
	WeekStart calendar.Date      `json:"week_start"`
	Project   coverage.ProjectID `json:"project_id"`
}

// BulkAssignmentRequest is the body of POST /api/schedules/{id}/assignments/bulk.
type BulkAssignmentRequest struct {
	RequestID string              `json:"request_id,omitempty"`
	Items     []coverage.BulkItem `json:"items"`
}

// =============================================================================
// ROSTER
// =============================================================================

// PersonDTO is a roster member with the dates progress tracking needs.
type PersonDTO = sqlite.PersonRecord

// TeamRequest is the body of PUT /api/teams/{id}.
type TeamRequest struct {
	Name      string              `json:"name"`
	LeadID    coverage.PersonID   `json:"lead_id"`
	MemberIDs []coverage.PersonID `json:"member_ids"`
}

// ProjectRequest is the body of PUT /api/projects/{id}.
type ProjectRequest struct {
	Name     string               `json:"name"`
	Color    string               `json:"color"`
	Type     coverage.ProjectType `json:"type"`
	IsSystem bool                 `json:"is_system"`
}

// =============================================================================
// CALENDAR & PROGRESS
// =============================================================================

// HolidayDTO is one observed holiday.
type HolidayDTO struct {
	Name     string        `json:"name"`
	Date     calendar.Date `json:"date"`
	Observed bool          `json:"observed"`
	Weekday  string        `json:"weekday"`
}

// ProgressDTO is one person's tenure and cycle progress with display labels.
type ProgressDTO struct {
	Member      progress.Member `json:"member"`
	Tenure      progress.Result `json:"tenure"`
	TenureLabel string          `json:"tenure_label"`
	Cycle       progress.Result `json:"cycle"`
	CycleLabel  string          `json:"cycle_label"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
