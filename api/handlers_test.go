/*
handlers_test.go - HTTP handler tests

Tests for:
- Schedule CRUD and the quarter window defaults
- Assignment writes (week normalization, empty batches, bad references)
- Derived views: gaps, stats, weeks, holidays, progress, limits
- Error status mapping, rate limiting, metrics and health
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
	"github.com/warp/coverage-engine/store/sqlite"
)

var testToday = calendar.NewDate(2026, 1, 15)

type testAPI struct {
	h      *Handler
	store  *sqlite.Store
	router *chi.Mux
}

// newTestAPI serves an in-memory store with rate limiting off and the clock
// fixed at testToday.
func newTestAPI(t *testing.T, opts ...HandlerOption) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := []HandlerOption{
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() calendar.Date { return testToday }),
	}
	h := NewHandler(store, append(base, opts...)...)
	return &testAPI{
		h:      h,
		store:  store,
		router: NewRouter(h, RouterConfig{}),
	}
}

// withScenario loads a scenario and returns the first schedule's ID.
func (a *testAPI) withScenario(t *testing.T, id string) coverage.ScheduleID {
	t.Helper()
	require.NoError(t, a.h.LoadScenarioByID(context.Background(), id))
	schedules, err := a.store.ListSchedules(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, schedules)
	return schedules[len(schedules)-1].ID
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func dates(ss ...string) []calendar.Date {
	out := make([]calendar.Date, len(ss))
	for i, s := range ss {
		out[i] = calendar.MustParseDate(s)
	}
	return out
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestSchedules_CreateListGetDelete(t *testing.T) {
	a := newTestAPI(t)

	// WHEN: A Q1 2026 schedule is created
	rec := a.do(t, http.MethodPost, "/api/schedules", CreateScheduleRequest{Name: " Platform ", Year: 2026, Quarter: 1})

	// THEN: It spans 14 weeks from the Monday before New Year
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ScheduleDTO](t, rec)
	assert.Equal(t, "Platform", created.Name)
	assert.Equal(t, "Q1 2026", created.Label)
	assert.Equal(t, 14, created.Weeks)
	assert.Equal(t, calendar.NewDate(2025, 12, 29), created.Start)
	assert.Equal(t, calendar.NewDate(2026, 3, 30), created.End)

	rec = a.do(t, http.MethodGet, "/api/schedules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScheduleDTO](t, rec), 1)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeBody[ScheduleDTO](t, rec))

	// WHEN: It is deleted
	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: It is gone
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedules_Validation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"quarter out of range", http.MethodPost, "/api/schedules", CreateScheduleRequest{Name: "x", Year: 2026, Quarter: 5}, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/schedules", CreateScheduleRequest{Year: 2026, Quarter: 1}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/schedules", map[string]any{"name": "x", "year": 2026, "quarter": 1, "owner": "me"}, http.StatusBadRequest},
		{"non-numeric id", http.MethodGet, "/api/schedules/abc", nil, http.StatusBadRequest},
		{"unknown schedule", http.MethodGet, "/api/schedules/99", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// DIRECTORY & ASSIGNMENTS
// =============================================================================

func TestGetDirectory_DefaultsToQuarterWindow(t *testing.T) {
	// GIVEN: The platform rota scenario
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")

	// WHEN: The directory is requested without a window
	rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/directory", id), nil)

	// THEN: The whole quarter comes back with roster and catalog
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeBody[coverage.Snapshot](t, rec)
	assert.Equal(t, calendar.Period{Start: calendar.NewDate(2025, 12, 29), End: calendar.NewDate(2026, 3, 30)}, snap.Range)
	assert.Len(t, snap.Teams, 2)
	assert.Len(t, snap.Projects, 5)
	assert.Len(t, snap.Assignments, 41)

	// WHEN: A single week is requested
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/directory?start=2026-01-19&end=2026-01-19", id), nil)

	// THEN: Only that week's cells come back, and nobody is On Call
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeBody[coverage.Snapshot](t, rec)
	for _, as := range snap.Assignments {
		assert.Equal(t, calendar.NewDate(2026, 1, 19), as.WeekStart)
		assert.NotEqual(t, coverage.ProjectID(1), as.Project)
	}

	// WHEN: The window is inverted
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/directory?start=2026-02-01&end=2026-01-01", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAssignment_NormalizesWeekAndClears(t *testing.T) {
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")
	path := fmt.Sprintf("/api/schedules/%d/assignments", id)

	// WHEN: Dara is put On Call with a Wednesday date
	rec := a.do(t, http.MethodPut, path, AssignmentRequest{Person: 4, WeekStart: calendar.NewDate(2026, 1, 21), Project: 1})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// THEN: The cell lands on that week's Monday and the gap closes
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/gaps", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dates("2026-03-09"), decodeBody[coverage.Report](t, rec).GapWeeks)

	// WHEN: The cell is cleared with project 0
	rec = a.do(t, http.MethodPut, path, AssignmentRequest{Person: 4, WeekStart: calendar.NewDate(2026, 1, 19), Project: coverage.NoProject})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: Dara has no cell that week and the gap is back
	snap, err := a.store.Load(context.Background(), coverage.DirectoryQuery{
		ScheduleID: id,
		Range:      calendar.Period{Start: calendar.NewDate(2026, 1, 19), End: calendar.NewDate(2026, 1, 19)},
	})
	require.NoError(t, err)
	for _, as := range snap.Assignments {
		assert.NotEqual(t, coverage.PersonID(4), as.Person)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(a.h.metrics.cells.WithLabelValues("clear")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.h.metrics.mutations.WithLabelValues("set", "ok")))
}

func TestBulkSetAssignments(t *testing.T) {
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")
	path := fmt.Sprintf("/api/schedules/%d/assignments/bulk", id)

	t.Run("fills both gaps at once", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, path, BulkAssignmentRequest{Items: []coverage.BulkItem{
			{Person: 6, WeekStart: calendar.NewDate(2026, 1, 19), Project: 1},
			{Person: 6, WeekStart: calendar.NewDate(2026, 3, 12), Project: 1},
		}})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/gaps", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		report := decodeBody[coverage.Report](t, rec)
		assert.True(t, report.Covered(), "gaps: %v", report.GapWeeks)
	})

	t.Run("empty batch is a client error", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, path, BulkAssignmentRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown project is a conflict and writes nothing", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, path, BulkAssignmentRequest{Items: []coverage.BulkItem{
			{Person: 3, WeekStart: calendar.NewDate(2026, 2, 2), Project: 2},
			{Person: 3, WeekStart: calendar.NewDate(2026, 2, 9), Project: 999},
		}})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

		snap, err := a.store.Load(context.Background(), coverage.DirectoryQuery{
			ScheduleID: id,
			Range:      calendar.Period{Start: calendar.NewDate(2026, 2, 2), End: calendar.NewDate(2026, 2, 2)},
		})
		require.NoError(t, err)
		for _, as := range snap.Assignments {
			if as.Person == 3 {
				assert.NotEqual(t, coverage.ProjectID(2), as.Project)
			}
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(a.h.metrics.mutations.WithLabelValues("bulk", "error")))
	})

	t.Run("unknown schedule is not found", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/schedules/999/assignments/bulk", BulkAssignmentRequest{Items: []coverage.BulkItem{
			{Person: 1, WeekStart: calendar.NewDate(2026, 1, 5), Project: 1},
		}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

func TestGetCoverageGaps(t *testing.T) {
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")

	// WHEN: Gaps are checked against the default sentinel
	rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/gaps", id), nil)

	// THEN: The two skipped rotation weeks are reported
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[coverage.Report](t, rec)
	assert.Equal(t, "On Call", report.Sentinel)
	assert.Equal(t, 14, report.Weeks)
	assert.Equal(t, calendar.Quarter{Year: 2026, Q: 1}, report.Quarter)
	assert.Equal(t, dates("2026-01-19", "2026-03-09"), report.GapWeeks)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.h.metrics.gapWeeks.WithLabelValues(fmt.Sprint(id))))

	// WHEN: Gaps are checked against Apollo, which Dara covers every week
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/gaps?project=apollo", id), nil)

	// THEN: There are none
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[coverage.Report](t, rec).GapWeeks)

	// WHEN: The sentinel is not in the catalog
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/gaps?project=Pager", id), nil)

	// THEN: Every week is a gap
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[coverage.Report](t, rec).GapWeeks, 14)
}

func TestGetStats(t *testing.T) {
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/stats", id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeBody[coverage.Stats](t, rec)

	// Six people over 14 weeks; 12 rota cells, 14 Apollo, 14 Gemini/Tooling, 1 leave.
	assert.Equal(t, 84, stats.MemberWeeks)
	assert.Equal(t, 41, stats.Assigned)
	assert.Equal(t, 43, stats.Unassigned)

	require.NotEmpty(t, stats.ByProject)
	assert.Equal(t, "Apollo", stats.ByProject[0].Name)
	assert.Equal(t, "Unassigned", stats.ByProject[len(stats.ByProject)-1].Name)

	byName := map[string]int{}
	for _, p := range stats.ByProject {
		byName[p.Name] = p.Weeks
	}
	assert.Equal(t, 14, byName["Apollo"])
	assert.Equal(t, 12, byName["On Call"])
	assert.Equal(t, 7, byName["Gemini"])
	assert.Equal(t, 7, byName["Tooling"])
	assert.Equal(t, 1, byName["Leave"])
}

func TestCalendarEndpoints(t *testing.T) {
	a := newTestAPI(t)

	t.Run("holidays default to the current year", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/calendar/holidays", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		holidays := decodeBody[[]HolidayDTO](t, rec)
		require.Len(t, holidays, 11)

		byName := map[string]HolidayDTO{}
		for _, h := range holidays {
			byName[h.Name] = h
		}
		// July 4 2026 is a Saturday.
		assert.Equal(t, calendar.NewDate(2026, 7, 3), byName["Independence Day"].Date)
		assert.True(t, byName["Independence Day"].Observed)
		assert.Equal(t, "Friday", byName["Independence Day"].Weekday)
		assert.False(t, byName["Thanksgiving"].Observed)
	})

	t.Run("quarter weeks carry holiday names", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/calendar/weeks?year=2026&quarter=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		weeks := decodeBody[[]calendar.Week](t, rec)
		require.Len(t, weeks, 14)
		assert.Equal(t, calendar.NewDate(2025, 12, 29), weeks[0].Start)
		assert.Equal(t, []string{"New Year's Day"}, weeks[0].Holidays)
	})

	t.Run("bad quarter", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/calendar/weeks?year=2026&quarter=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = a.do(t, http.MethodGet, "/api/calendar/weeks?year=twenty", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("schedule weeks match the calendar", func(t *testing.T) {
		id := a.withScenario(t, "platform-rota")
		rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/weeks", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		weeks := decodeBody[[]calendar.Week](t, rec)
		require.Len(t, weeks, 14)
		assert.Equal(t, []string{"MLK Day"}, weeks[3].Holidays)
	})
}

// =============================================================================
// LIMITS & PROGRESS
// =============================================================================

func TestLimits(t *testing.T) {
	a := newTestAPI(t)

	// WHEN: Senior gets a 36 month tenure limit
	rec := a.do(t, http.MethodPut, "/api/limits/tenure", progress.LevelLimit{JobLevel: "Senior", LimitMonths: 36})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The table lists every level with Senior set
	rec = a.do(t, http.MethodGet, "/api/limits/tenure", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]progress.LevelLimit](t, rec)
	require.Len(t, rows, len(progress.JobLevels))
	for _, row := range rows {
		if row.JobLevel == "Senior" {
			assert.Equal(t, 36, row.LimitMonths)
		} else {
			assert.Zero(t, row.LimitMonths, row.JobLevel)
		}
	}

	// THEN: Out of range values and unknown kinds are rejected
	rec = a.do(t, http.MethodPut, "/api/limits/tenure", progress.LevelLimit{JobLevel: "Senior", LimitMonths: progress.MaxLimitMonths + 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/limits/vacation", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOutlook(t *testing.T) {
	// GIVEN: The platform rota, where bob lee is on leave in Presidents' Day week
	a := newTestAPI(t)
	id := a.withScenario(t, "platform-rota")

	// WHEN: The outlook is requested for Tuesday Feb 10
	rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/outlook?as_of=2026-02-10", id), nil)

	// THEN: bob lee is on call this week, Chen Wu next week
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[coverage.Outlook](t, rec)
	assert.Equal(t, calendar.NewDate(2026, 2, 9), out.WeekStart)
	require.Len(t, out.OnCallThisWeek, 1)
	assert.Equal(t, "bob lee", out.OnCallThisWeek[0].Name)
	require.Len(t, out.OnCallNextWeek, 1)
	assert.Equal(t, "Chen Wu", out.OnCallNextWeek[0].Name)

	// AND: Next week lists his leave next to the federal holiday
	assert.Empty(t, out.LeaveThisWeek)
	require.Len(t, out.UpcomingLeave, 1)
	assert.Equal(t, calendar.NewDate(2026, 2, 16), out.UpcomingLeave[0].WeekStart)
	assert.Equal(t, []coverage.LeaveEntry{
		{Person: 2, Name: "bob lee", Leave: "Leave"},
		{Name: coverage.HolidayLabel, Leave: "Presidents' Day"},
	}, out.UpcomingLeave[0].Entries)

	// WHEN: No as_of is given, the handler clock (Jan 15) is used
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/outlook", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeBody[coverage.Outlook](t, rec)

	// THEN: Next week is an uncovered MLK Day week
	assert.Equal(t, calendar.NewDate(2026, 1, 12), out.WeekStart)
	assert.Empty(t, out.OnCallNextWeek)
	require.NotEmpty(t, out.UpcomingLeave)
	assert.Equal(t, calendar.NewDate(2026, 1, 19), out.UpcomingLeave[0].WeekStart)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d/outlook?as_of=soon", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgress(t *testing.T) {
	a := newTestAPI(t)
	a.withScenario(t, "platform-rota")

	rec := a.do(t, http.MethodGet, "/api/progress?as_of=2026-03-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decodeBody[[]ProgressDTO](t, rec)
	require.Len(t, entries, 6)

	// Junior first: 18 months since 2024-09-02 against an 18 month limit.
	assert.Equal(t, "Dara Okafor", entries[0].Member.Name)
	assert.Equal(t, "At limit", entries[0].TenureLabel)
	assert.Equal(t, "Unknown", entries[0].CycleLabel)

	// Principal last, with no tenure limit and no start dates.
	last := entries[len(entries)-1]
	assert.Equal(t, "Fay Moreau", last.Member.Name)
	assert.Equal(t, "Unknown", last.TenureLabel)

	rec = a.do(t, http.MethodGet, "/api/progress?as_of=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ROSTER
// =============================================================================

func TestRosterUpserts(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPut, "/api/people/7", map[string]any{"name": "Gus", "job_level": "Mid", "level_start_date": "2025-05-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/people", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	people := decodeBody[[]PersonDTO](t, rec)
	require.Len(t, people, 1)
	assert.Equal(t, coverage.PersonID(7), people[0].ID)
	assert.Equal(t, calendar.NewDate(2025, 5, 1), people[0].LevelStartDate)

	rec = a.do(t, http.MethodPut, "/api/projects/3", ProjectRequest{Name: "On Call", Type: coverage.TypeSupport, IsSystem: true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPut, "/api/projects/0", ProjectRequest{Name: "None"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/teams/1", TeamRequest{Name: "Platform", LeadID: 7, MemberIDs: []coverage.PersonID{7}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPut, "/api/teams/2", TeamRequest{Name: "Ghosts", MemberIDs: []coverage.PersonID{42}})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

// =============================================================================
// ERRORS, LIMITING, METRICS, HEALTH
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", sqlite.ErrNotFound), http.StatusNotFound},
		{coverage.ErrUnknownTeam, http.StatusNotFound},
		{sqlite.ErrInvalidReference, http.StatusConflict},
		{calendar.ErrInvalidCalendarInput, http.StatusBadRequest},
		{progress.ErrInvalidLimit, http.StatusBadRequest},
		{coverage.ErrEmptyBatch, http.StatusBadRequest},
		{&coverage.RemoteError{Op: "hydrate", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{&coverage.RemoteError{Op: "hydrate", Err: sqlite.ErrNotFound}, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	a := newTestAPI(t)
	router := NewRouter(a.h, RouterConfig{RateLimitPerMinute: 1, RateLimitBurst: 1})

	get := func(path string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/api/schedules"))
	assert.Equal(t, http.StatusTooManyRequests, get("/api/schedules"))
	assert.Equal(t, http.StatusOK, get("/health"), "health is not rate limited")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.h.metrics.rateLimited))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	// GIVEN: a limiter on a fake clock, one quiet client and one throttled client
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, 20, zaptest.NewLogger(t), NewMetrics())
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	assert.True(t, rl.allow("10.0.0.1"))
	for i := 0; i < 20; i++ {
		assert.True(t, rl.allow("10.0.0.2"))
	}
	assert.False(t, rl.allow("10.0.0.2"))

	// WHEN: both go quiet past the idle TTL and a new client arrives
	now = now.Add(limiterIdleTTL + time.Second)
	assert.True(t, rl.allow("10.0.0.3"))

	// THEN: the refilled bucket is dropped; the still-draining one is kept
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.2")
	assert.Contains(t, rl.clients, "10.0.0.3")
	assert.Len(t, rl.clients, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodGet, "/api/schedules", nil)

	rec := a.do(t, http.MethodGet, MetricsPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "coverage_http_request_duration_seconds")
	assert.Contains(t, body, "coverage_rate_limited_total")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "store": "ok", "cache": "disabled"}, decodeBody[map[string]string](t, rec))

	// WHEN: The store is closed
	require.NoError(t, a.store.Close())

	// THEN: Health degrades
	rec = a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody[map[string]string](t, rec)["status"])
}
