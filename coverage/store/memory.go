// Package store provides in-process coverage.SyncAdapter implementations.
package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
)

// ErrScheduleNotFound is returned for operations on an unknown schedule.
var ErrScheduleNotFound = errors.New("schedule not found")

// =============================================================================
// MEMORY STORE - In-memory remote directory (for testing/dev)
// =============================================================================

type cell struct {
	schedule coverage.ScheduleID
	person   coverage.PersonID
	week     calendar.Date
}

// Memory is an in-process stand-in for the remote schedule service.
// FailNext makes the next remote calls fail, for exercising failure policy.
type Memory struct {
	mu        sync.RWMutex
	schedules map[coverage.ScheduleID]coverage.Schedule
	teams     []coverage.Team
	projects  []coverage.Project
	cells     map[cell]coverage.ProjectID

	failures []error
	calls    Calls
}

// Calls counts remote operations, so tests can assert batching.
type Calls struct {
	Loads int
	Sets  int
	Bulks int
}

func NewMemory() *Memory {
	return &Memory{
		schedules: make(map[coverage.ScheduleID]coverage.Schedule),
		cells:     make(map[cell]coverage.ProjectID),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// PutSchedule adds or replaces a schedule.
func (m *Memory) PutSchedule(s coverage.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = s
}

// SetRoster replaces the team roster.
func (m *Memory) SetRoster(teams []coverage.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams = cloneTeams(teams)
}

// SetCatalog replaces the project catalog.
func (m *Memory) SetCatalog(projects []coverage.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = slices.Clone(projects)
}

// Seed writes assignments directly, bypassing failure injection.
func (m *Memory) Seed(schedule coverage.ScheduleID, rows ...coverage.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range rows {
		m.putLocked(schedule, a.Person, a.WeekStart, a.Project)
	}
}

// FailNext queues errors returned by the next remote calls, one per call.
func (m *Memory) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Calls returns the operation counters.
func (m *Memory) Calls() Calls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// ListSchedules returns schedules ordered by ID.
func (m *Memory) ListSchedules(_ context.Context) ([]coverage.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]coverage.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b coverage.Schedule) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// =============================================================================
// coverage.SyncAdapter
// =============================================================================

func (m *Memory) Load(ctx context.Context, q coverage.DirectoryQuery) (coverage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return coverage.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Loads++
	if err := m.nextFailureLocked(); err != nil {
		return coverage.Snapshot{}, err
	}
	if _, ok := m.schedules[q.ScheduleID]; !ok {
		return coverage.Snapshot{}, ErrScheduleNotFound
	}

	snap := coverage.Snapshot{
		Range:    q.Range,
		Teams:    cloneTeams(m.teams),
		Projects: slices.Clone(m.projects),
	}
	for c, p := range m.cells {
		if c.schedule == q.ScheduleID && q.Range.Contains(c.week) {
			snap.Assignments = append(snap.Assignments, coverage.Assignment{Person: c.person, Project: p, WeekStart: c.week})
		}
	}
	slices.SortFunc(snap.Assignments, func(a, b coverage.Assignment) int {
		if c := a.WeekStart.Compare(b.WeekStart); c != 0 {
			return c
		}
		return cmp.Compare(a.Person, b.Person)
	})
	return snap, nil
}

func (m *Memory) SetAssignment(ctx context.Context, req coverage.SetAssignmentRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Sets++
	if err := m.nextFailureLocked(); err != nil {
		return err
	}
	if _, ok := m.schedules[req.ScheduleID]; !ok {
		return ErrScheduleNotFound
	}
	m.putLocked(req.ScheduleID, req.Person, req.WeekStart, req.Project)
	return nil
}

// BulkSetAssignments applies every item or none.
func (m *Memory) BulkSetAssignments(ctx context.Context, req coverage.BulkSetRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Bulks++
	if err := m.nextFailureLocked(); err != nil {
		return err
	}
	if _, ok := m.schedules[req.ScheduleID]; !ok {
		return ErrScheduleNotFound
	}
	for _, it := range req.Items {
		m.putLocked(req.ScheduleID, it.Person, it.WeekStart, it.Project)
	}
	return nil
}

func (m *Memory) putLocked(schedule coverage.ScheduleID, person coverage.PersonID, week calendar.Date, project coverage.ProjectID) {
	c := cell{schedule: schedule, person: person, week: week}
	if project == coverage.NoProject {
		delete(m.cells, c)
		return
	}
	m.cells[c] = project
}

func (m *Memory) nextFailureLocked() error {
	if len(m.failures) == 0 {
		return nil
	}
	err := m.failures[0]
	m.failures = m.failures[1:]
	return err
}

func cloneTeams(teams []coverage.Team) []coverage.Team {
	out := make([]coverage.Team, len(teams))
	for i, t := range teams {
		t.Members = slices.Clone(t.Members)
		out[i] = t
	}
	return out
}
