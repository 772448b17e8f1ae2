package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
)

var (
	week1 = calendar.NewDate(2026, 1, 5)
	week2 = calendar.NewDate(2026, 1, 12)
)

// newTestStore opens an in-memory store seeded with a schedule, two people,
// one team and two projects.
func newTestStore(t *testing.T) (*Store, coverage.Schedule) {
	t.Helper()
	ctx := context.Background()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sch, err := s.CreateSchedule(ctx, coverage.Schedule{Name: "Q1 rota", Year: 2026, Quarter: 1})
	require.NoError(t, err)

	require.NoError(t, s.SavePerson(ctx, PersonRecord{
		Person:         coverage.Person{ID: 1, Name: "alice", JobLevel: "Senior"},
		LevelStartDate: calendar.NewDate(2024, 2, 1),
	}))
	require.NoError(t, s.SavePerson(ctx, PersonRecord{Person: coverage.Person{ID: 2, Name: "Bob", JobLevel: "Mid"}}))
	require.NoError(t, s.SaveTeam(ctx, coverage.Team{
		ID: 1, Name: "Platform", LeadID: 2,
		Members: []coverage.Person{{ID: 1}, {ID: 2}},
	}))
	require.NoError(t, s.SaveProject(ctx, coverage.Project{ID: 10, Name: "On Call", Type: coverage.TypeSupport, IsSystem: true}))
	require.NoError(t, s.SaveProject(ctx, coverage.Project{ID: 20, Name: "Apollo", Type: coverage.TypeClient, Color: "#336699"}))
	return s, sch
}

func load(t *testing.T, s *Store, id coverage.ScheduleID, p calendar.Period) coverage.Snapshot {
	t.Helper()
	snap, err := s.Load(context.Background(), coverage.DirectoryQuery{ScheduleID: id, Range: p})
	require.NoError(t, err)
	return snap
}

func TestSchedules_CRUD(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)

	got, err := s.GetSchedule(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, sch, got)

	_, err = s.CreateSchedule(ctx, coverage.Schedule{Name: "next", Year: 2026, Quarter: 2})
	require.NoError(t, err)
	all, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "next", all[0].Name, "newest quarter first")

	_, err = s.CreateSchedule(ctx, coverage.Schedule{Name: "bad", Year: 2026, Quarter: 5})
	assert.ErrorIs(t, err, calendar.ErrInvalidCalendarInput)

	require.NoError(t, s.DeleteSchedule(ctx, sch.ID))
	_, err = s.GetSchedule(ctx, sch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSchedule(ctx, sch.ID), ErrNotFound)
}

func TestLoad_RosterAndCatalog(t *testing.T) {
	s, sch := newTestStore(t)

	snap := load(t, s, sch.ID, calendar.WeekPeriod(week1))

	require.Len(t, snap.Teams, 1)
	assert.Equal(t, coverage.PersonID(2), snap.Teams[0].LeadID)
	assert.Equal(t, []coverage.Person{
		{ID: 1, Name: "alice", JobLevel: "Senior"},
		{ID: 2, Name: "Bob", JobLevel: "Mid"},
	}, snap.Teams[0].Members)

	require.Len(t, snap.Projects, 2)
	assert.Equal(t, "Apollo", snap.Projects[0].Name)
	assert.Equal(t, coverage.TypeSupport, snap.Projects[1].Type)
	assert.True(t, snap.Projects[1].IsSystem)
	assert.Empty(t, snap.Assignments)
}

func TestLoad_UnknownSchedule(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background(), coverage.DirectoryQuery{ScheduleID: 99, Range: calendar.WeekPeriod(week1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAssignment_SingleSlot(t *testing.T) {
	// GIVEN: alice is on Apollo in week 1
	ctx := context.Background()
	s, sch := newTestStore(t)
	require.NoError(t, s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, WeekStart: week1, Project: 20}))

	// WHEN: the same cell is set to On Call
	require.NoError(t, s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, WeekStart: week1, Project: 10}))

	// THEN: the cell holds only the latest project
	snap := load(t, s, sch.ID, calendar.WeekPeriod(week1))
	assert.Equal(t, []coverage.Assignment{{Person: 1, Project: 10, WeekStart: week1}}, snap.Assignments)

	// Clearing deletes the row
	require.NoError(t, s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, WeekStart: week1}))
	assert.Empty(t, load(t, s, sch.ID, calendar.WeekPeriod(week1)).Assignments)
}

func TestBulkSetAssignments_RangeFilter(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)
	require.NoError(t, s.BulkSetAssignments(ctx, coverage.BulkSetRequest{
		ScheduleID: sch.ID,
		Items: []coverage.BulkItem{
			{Person: 2, WeekStart: week1, Project: 10},
			{Person: 1, WeekStart: week1, Project: 20},
			{Person: 1, WeekStart: week2, Project: 20},
		},
	}))

	snap := load(t, s, sch.ID, calendar.WeekPeriod(week1))
	assert.Equal(t, []coverage.Assignment{
		{Person: 1, Project: 20, WeekStart: week1},
		{Person: 2, Project: 10, WeekStart: week1},
	}, snap.Assignments)

	both := load(t, s, sch.ID, calendar.Period{Start: week1, End: week2.AddDays(6)})
	assert.Len(t, both.Assignments, 3)
}

func TestBulkSetAssignments_AllOrNothing(t *testing.T) {
	// GIVEN: a batch whose last row references a missing project
	ctx := context.Background()
	s, sch := newTestStore(t)

	// WHEN: it is written
	err := s.BulkSetAssignments(ctx, coverage.BulkSetRequest{
		ScheduleID: sch.ID,
		Items: []coverage.BulkItem{
			{Person: 1, WeekStart: week1, Project: 20},
			{Person: 2, WeekStart: week1, Project: 999},
		},
	})

	// THEN: nothing is stored
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.Empty(t, load(t, s, sch.ID, calendar.WeekPeriod(week1)).Assignments)
}

func TestBulkSetAssignments_RequestIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)
	req := coverage.SetAssignmentRequest{RequestID: "req-1", ScheduleID: sch.ID, Person: 1, WeekStart: week1, Project: 20}
	require.NoError(t, s.SetAssignment(ctx, req))

	// A different write in between, then a replay of req-1
	require.NoError(t, s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, WeekStart: week1, Project: 10}))
	require.NoError(t, s.SetAssignment(ctx, req))

	snap := load(t, s, sch.ID, calendar.WeekPeriod(week1))
	assert.Equal(t, []coverage.Assignment{{Person: 1, Project: 10, WeekStart: week1}}, snap.Assignments, "replay must be a no-op")
}

func TestSetAssignment_Errors(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)

	err := s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: 77, Person: 1, WeekStart: week1, Project: 20})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, Project: 20})
	assert.ErrorIs(t, err, calendar.ErrInvalidCalendarInput)
}

func TestSaveTeam_ReplacesMembers(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)

	require.NoError(t, s.SaveTeam(ctx, coverage.Team{ID: 1, Name: "Platform", Members: []coverage.Person{{ID: 2}}}))
	snap := load(t, s, sch.ID, calendar.WeekPeriod(week1))
	require.Len(t, snap.Teams, 1)
	assert.Zero(t, snap.Teams[0].LeadID)
	assert.Len(t, snap.Teams[0].Members, 1)

	err := s.SaveTeam(ctx, coverage.Team{ID: 2, Name: "Ghosts", Members: []coverage.Person{{ID: 404}}})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestPeople_DatesRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	people, err := s.ListPeople(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)

	alice := people[0]
	assert.Equal(t, "alice", alice.Name)
	assert.True(t, alice.LevelStartDate.Equal(calendar.NewDate(2024, 2, 1)))
	assert.True(t, alice.CycleStartDate.IsZero(), "NULL scans as the zero date")

	m := alice.Member()
	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, "Senior", m.JobLevel)
}

func TestLevelLimits(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.SetLevelLimit(ctx, progress.KindTenure, progress.LevelLimit{JobLevel: "Senior", LimitMonths: 24}))
	require.NoError(t, s.SetLevelLimit(ctx, progress.KindTenure, progress.LevelLimit{JobLevel: "Senior", LimitMonths: 30}))
	require.NoError(t, s.SetLevelLimit(ctx, progress.KindCycle, progress.LevelLimit{JobLevel: "Senior", LimitMonths: 6}))

	table, err := progress.LoadTable(ctx, s, progress.KindTenure)
	require.NoError(t, err)
	assert.Equal(t, 30, table.Limit("Senior"))
	assert.Equal(t, 0, table.Limit("Mid"))

	rows, err := s.LevelLimits(ctx, progress.KindCycle)
	require.NoError(t, err)
	assert.Len(t, rows, len(progress.JobLevels))

	// 0 clears
	require.NoError(t, s.SetLevelLimit(ctx, progress.KindTenure, progress.LevelLimit{JobLevel: "Senior"}))
	table, err = progress.LoadTable(ctx, s, progress.KindTenure)
	require.NoError(t, err)
	assert.Empty(t, table)

	assert.ErrorIs(t, s.SetLevelLimit(ctx, progress.KindTenure, progress.LevelLimit{JobLevel: "Senior", LimitMonths: 61}), progress.ErrInvalidLimit)
	_, err = s.LevelLimits(ctx, progress.LimitKind("vacation"))
	assert.ErrorIs(t, err, progress.ErrInvalidLimit)
}

func TestCoverageReports(t *testing.T) {
	ctx := context.Background()
	s, sch := newTestStore(t)
	require.NoError(t, s.SetAssignment(ctx, coverage.SetAssignmentRequest{ScheduleID: sch.ID, Person: 1, WeekStart: week1, Project: 10}))

	// GIVEN: a check over the real store
	report, err := coverage.CheckSchedule(ctx, s, sch, coverage.DefaultSentinel)
	require.NoError(t, err)
	assert.Equal(t, 14, report.Weeks)
	assert.Len(t, report.GapWeeks, 13)

	// WHEN: it is saved alongside an older one
	older := report
	older.ID = "older"
	older.GapWeeks = nil
	older.CheckedAt = report.CheckedAt.Add(-time.Hour)
	require.NoError(t, s.SaveCoverageReport(ctx, older))
	require.NoError(t, s.SaveCoverageReport(ctx, report))

	// THEN: the list is newest first and round-trips gap weeks
	reports, err := s.ListCoverageReports(ctx, sch.ID, 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, report.ID, reports[0].ID)
	assert.Equal(t, report.GapWeeks, reports[0].GapWeeks)
	assert.Equal(t, calendar.Quarter{Year: 2026, Q: 1}, reports[0].Quarter)
	assert.True(t, reports[1].Covered())

	limited, err := s.ListCoverageReports(ctx, sch.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Reset(ctx))

	all, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	require.NoError(t, s.Ping(ctx))
}
