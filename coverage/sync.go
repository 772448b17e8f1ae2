package coverage

import (
	"context"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// SYNC ADAPTER - Boundary to the remote schedule service
// =============================================================================

// DirectoryQuery asks for everything needed to render one schedule window.
type DirectoryQuery struct {
	ScheduleID ScheduleID      `json:"schedule_id"`
	Range      calendar.Period `json:"range"`
}

// Snapshot is the directory's answer. Range echoes the query so a caller can
// tell which request a late result belongs to.
type Snapshot struct {
	Range       calendar.Period `json:"range"`
	Assignments []Assignment    `json:"assignments"`
	Teams       []Team          `json:"teams"`
	Projects    []Project       `json:"projects"`
}

// SetAssignmentRequest persists one cell. Project NoProject clears it.
type SetAssignmentRequest struct {
	RequestID  string        `json:"request_id"`
	ScheduleID ScheduleID    `json:"schedule_id"`
	Person     PersonID      `json:"person_id"`
	WeekStart  calendar.Date `json:"week_start"`
	Project    ProjectID     `json:"project_id"`
}

// BulkItem is one row of a batched mutation.
type BulkItem struct {
	Person    PersonID      `json:"person_id"`
	WeekStart calendar.Date `json:"week_start"`
	Project   ProjectID     `json:"project_id"`
}

// BulkSetRequest persists many cells in one call.
type BulkSetRequest struct {
	RequestID  string     `json:"request_id"`
	ScheduleID ScheduleID `json:"schedule_id"`
	Items      []BulkItem `json:"items"`
}

// Directory loads assignment rows, roster and catalog for a window.
type Directory interface {
	Load(ctx context.Context, q DirectoryQuery) (Snapshot, error)
}

// Mutator persists cell changes. BulkSetAssignments is all-or-nothing on
// the remote side.
type Mutator interface {
	SetAssignment(ctx context.Context, req SetAssignmentRequest) error
	BulkSetAssignments(ctx context.Context, req BulkSetRequest) error
}

// SyncAdapter is the full remote contract the Grid depends on.
//
// Implementations:
//   - coverage/store.Memory: in-process, with failure injection
//   - store/sqlite.Store: local database
//   - store/rediscache.Directory: read-through cache decorator
//   - api.Client: the HTTP service
type SyncAdapter interface {
	Directory
	Mutator
}
