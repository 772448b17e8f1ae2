package coverage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// GRID - (person, week) -> project for one schedule window
// =============================================================================

// Grid is the assignment state for one schedule and one loaded window.
// It is owned by a single view session; the mutex only guards readers
// running alongside that session's writes.
type Grid struct {
	mu sync.RWMutex

	schedule     ScheduleID
	adapter      SyncAdapter
	log          *zap.Logger
	rollback     bool
	firstWeekday time.Weekday

	window   calendar.Period
	cells    map[cellKey]ProjectID
	projects map[ProjectID]Project
	catalog  []Project
	teams    []Team
}

// GridOption configures a Grid.
type GridOption func(*Grid)

// WithLogger attaches a logger. Defaults to zap.NewNop().
func WithLogger(log *zap.Logger) GridOption {
	return func(g *Grid) {
		if log != nil {
			g.log = log
		}
	}
}

// WithRollbackOnFailure restores the touched cells when a remote write fails,
// instead of holding the optimistic value.
func WithRollbackOnFailure() GridOption {
	return func(g *Grid) { g.rollback = true }
}

// WithFirstWeekday sets the week convention used to normalize week arguments.
func WithFirstWeekday(wd time.Weekday) GridOption {
	return func(g *Grid) { g.firstWeekday = wd }
}

// NewGrid creates an empty grid for a schedule.
func NewGrid(schedule ScheduleID, adapter SyncAdapter, opts ...GridOption) *Grid {
	g := &Grid{
		schedule:     schedule,
		adapter:      adapter,
		log:          zap.NewNop(),
		firstWeekday: calendar.DefaultFirstWeekday,
		cells:        make(map[cellKey]ProjectID),
		projects:     make(map[ProjectID]Project),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(zap.Int64("schedule_id", int64(schedule)))
	return g
}

func (g *Grid) Schedule() ScheduleID { return g.schedule }

// FirstWeekday is the week convention this grid normalizes to.
func (g *Grid) FirstWeekday() time.Weekday { return g.firstWeekday }

// Window returns the currently loaded range.
func (g *Grid) Window() calendar.Period {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.window
}

// =============================================================================
// HYDRATION
// =============================================================================

// Hydrate replaces the grid's contents with the directory's view of window.
// On failure the previous contents are kept.
func (g *Grid) Hydrate(ctx context.Context, window calendar.Period) error {
	snap, err := g.fetch(ctx, window)
	if err != nil {
		return err
	}
	g.Apply(snap)
	return nil
}

func (g *Grid) fetch(ctx context.Context, window calendar.Period) (Snapshot, error) {
	if err := window.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap, err := g.adapter.Load(ctx, DirectoryQuery{ScheduleID: g.schedule, Range: window})
	if err != nil {
		g.log.Warn("hydration failed, keeping last good state",
			zap.Stringer("range", window), zap.Error(err))
		return Snapshot{}, remoteErr("hydrate", false, err)
	}
	if snap.Range.Start.IsZero() {
		snap.Range = window
	}
	return snap, nil
}

// Apply installs a snapshot. Rows with NoProject are ignored; when the
// snapshot repeats a cell the last row wins.
func (g *Grid) Apply(snap Snapshot) {
	cells := make(map[cellKey]ProjectID, len(snap.Assignments))
	for _, a := range snap.Assignments {
		if a.Project == NoProject {
			continue
		}
		cells[g.key(a.Person, a.WeekStart)] = a.Project
	}

	projects := make(map[ProjectID]Project, len(snap.Projects))
	for _, p := range snap.Projects {
		projects[p.ID] = p
	}
	catalog := slices.Clone(snap.Projects)
	SortProjects(catalog)

	teams := make([]Team, len(snap.Teams))
	for i, t := range snap.Teams {
		t.Members = OrderedMembers(t)
		teams[i] = t
	}
	SortTeams(teams)

	g.mu.Lock()
	g.window = snap.Range
	g.cells = cells
	g.projects = projects
	g.catalog = catalog
	g.teams = teams
	g.mu.Unlock()

	g.log.Debug("grid hydrated",
		zap.Stringer("range", snap.Range),
		zap.Int("assignments", len(cells)),
		zap.Int("teams", len(teams)),
		zap.Int("projects", len(catalog)))
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetAssignment moves one cell to project (NoProject clears it), then
// persists it with one remote call. Calling it twice with the same value is
// a local no-op the second time, but is still persisted.
func (g *Grid) SetAssignment(ctx context.Context, person PersonID, week calendar.Date, project ProjectID) (Delta, error) {
	week = g.normalize(week)
	delta := g.applyLocal(week, []PersonID{person}, project)

	err := g.adapter.SetAssignment(ctx, SetAssignmentRequest{
		RequestID:  uuid.NewString(),
		ScheduleID: g.schedule,
		Person:     person,
		WeekStart:  week,
		Project:    project,
	})
	if err != nil {
		return g.failed(ctx, "set assignment", delta, project, err)
	}

	g.log.Debug("assignment set",
		zap.Int64("person_id", int64(person)),
		zap.Stringer("week_start", week),
		zap.Int64("project_id", int64(project)))
	return delta, nil
}

// BulkSetAssignment applies the same project to every listed person for one
// week, persisted as a single batched remote call. Duplicates are ignored.
func (g *Grid) BulkSetAssignment(ctx context.Context, people []PersonID, week calendar.Date, project ProjectID) (Delta, error) {
	people = dedupe(people)
	if len(people) == 0 {
		return Delta{}, ErrEmptyBatch
	}
	week = g.normalize(week)
	delta := g.applyLocal(week, people, project)

	items := make([]BulkItem, len(people))
	for i, p := range people {
		items[i] = BulkItem{Person: p, WeekStart: week, Project: project}
	}
	err := g.adapter.BulkSetAssignments(ctx, BulkSetRequest{
		RequestID:  uuid.NewString(),
		ScheduleID: g.schedule,
		Items:      items,
	})
	if err != nil {
		return g.failed(ctx, "bulk set assignments", delta, project, err)
	}

	g.log.Debug("bulk assignment set",
		zap.Int("people", len(people)),
		zap.Int("changed", len(delta.Changes)),
		zap.Stringer("week_start", week),
		zap.Int64("project_id", int64(project)))
	return delta, nil
}

// BulkSetTeam is BulkSetAssignment over every member of a team.
func (g *Grid) BulkSetTeam(ctx context.Context, team TeamID, week calendar.Date, project ProjectID) (Delta, error) {
	t, ok := g.Team(team)
	if !ok {
		return Delta{}, ErrUnknownTeam
	}
	people := make([]PersonID, len(t.Members))
	for i, m := range t.Members {
		people[i] = m.ID
	}
	return g.BulkSetAssignment(ctx, people, week, project)
}

// applyLocal writes the cells and returns what changed.
func (g *Grid) applyLocal(week calendar.Date, people []PersonID, project ProjectID) Delta {
	g.mu.Lock()
	defer g.mu.Unlock()

	delta := Delta{Week: week}
	for _, p := range people {
		k := cellKey{person: p, week: week}
		before := g.cells[k]
		if project == NoProject {
			delete(g.cells, k)
		} else {
			g.cells[k] = project
		}
		if before != project {
			delta.Changes = append(delta.Changes, CellChange{Person: p, Before: before, After: project})
		}
	}
	return delta
}

// failed applies the failure policy after a remote write error.
func (g *Grid) failed(ctx context.Context, op string, delta Delta, project ProjectID, err error) (Delta, error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.Stringer("week_start", delta.Week),
		zap.Int64("project_id", int64(project)),
		zap.Int("changed", len(delta.Changes)),
		zap.Error(err),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		fields = append(fields, zap.NamedError("ctx", ctxErr))
	}
	if !g.rollback {
		g.log.Warn("remote write failed, holding optimistic state", fields...)
		return delta, remoteErr(op, false, err)
	}

	g.restore(delta)
	g.log.Warn("remote write failed, local change rolled back", fields...)
	return Delta{Week: delta.Week}, remoteErr(op, true, err)
}

// restore reverts cells that still hold the value this delta wrote.
func (g *Grid) restore(delta Delta) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range delta.Changes {
		k := cellKey{person: c.Person, week: delta.Week}
		if g.cells[k] != c.After {
			continue
		}
		if c.Before == NoProject {
			delete(g.cells, k)
		} else {
			g.cells[k] = c.Before
		}
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// WeekAssignment is one row of a person's schedule.
type WeekAssignment struct {
	WeekStart calendar.Date `json:"week_start"`
	Project   ProjectID     `json:"project_id"`
}

// Assignment returns one cell.
func (g *Grid) Assignment(person PersonID, week calendar.Date) (ProjectID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.cells[g.key(person, week)]
	return p, ok
}

// AssignmentsFor returns a person's assigned weeks in ascending order.
func (g *Grid) AssignmentsFor(person PersonID) []WeekAssignment {
	g.mu.RLock()
	var out []WeekAssignment
	for k, p := range g.cells {
		if k.person == person {
			out = append(out, WeekAssignment{WeekStart: k.week, Project: p})
		}
	}
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b WeekAssignment) int { return a.WeekStart.Compare(b.WeekStart) })
	return out
}

// ProjectsInWeek maps every roster member to their project for week, with
// NoProject for unassigned members. Assigned people outside the roster are
// included too.
func (g *Grid) ProjectsInWeek(week calendar.Date) map[PersonID]ProjectID {
	week = g.normalize(week)
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[PersonID]ProjectID)
	for _, t := range g.teams {
		for _, m := range t.Members {
			out[m.ID] = NoProject
		}
	}
	for k, p := range g.cells {
		if k.week.Equal(week) {
			out[k.person] = p
		}
	}
	return out
}

// Assignments returns every cell, ordered by week then person.
func (g *Grid) Assignments() []Assignment {
	g.mu.RLock()
	out := make([]Assignment, 0, len(g.cells))
	for k, p := range g.cells {
		out = append(out, Assignment{Person: k.person, Project: p, WeekStart: k.week})
	}
	g.mu.RUnlock()

	slices.SortFunc(out, func(a, b Assignment) int {
		if c := a.WeekStart.Compare(b.WeekStart); c != 0 {
			return c
		}
		return cmp.Compare(a.Person, b.Person)
	})
	return out
}

// Projects returns the catalog sorted case-insensitively by name.
func (g *Grid) Projects() []Project {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.catalog)
}

// Project looks up a catalog entry.
func (g *Grid) Project(id ProjectID) (Project, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.projects[id]
	return p, ok
}

// Teams returns the roster: teams by name, members lead-first.
func (g *Grid) Teams() []Team {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Team, len(g.teams))
	for i, t := range g.teams {
		t.Members = slices.Clone(t.Members)
		out[i] = t
	}
	return out
}

// Team looks up one team.
func (g *Grid) Team(id TeamID) (Team, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, t := range g.teams {
		if t.ID == id {
			t.Members = slices.Clone(t.Members)
			return t, true
		}
	}
	return Team{}, false
}

// People returns each roster member once, in roster order.
func (g *Grid) People() []Person {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[PersonID]bool)
	var out []Person
	for _, t := range g.teams {
		for _, m := range t.Members {
			if !seen[m.ID] {
				seen[m.ID] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func (g *Grid) normalize(d calendar.Date) calendar.Date {
	return calendar.WeekStart(d, g.firstWeekday)
}

func (g *Grid) key(person PersonID, week calendar.Date) cellKey {
	return cellKey{person: person, week: g.normalize(week)}
}

func dedupe(people []PersonID) []PersonID {
	seen := make(map[PersonID]bool, len(people))
	out := make([]PersonID, 0, len(people))
	for _, p := range people {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
