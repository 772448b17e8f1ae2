package coverage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/coverage/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// FIXTURE
// =============================================================================

const schedule coverage.ScheduleID = 1

const (
	onCall coverage.ProjectID = 10
	apollo coverage.ProjectID = 20
	bench  coverage.ProjectID = 30
	gemini coverage.ProjectID = 40
)

var catalog = []coverage.Project{
	{ID: apollo, Name: "Apollo", Color: "#ff0000", Type: coverage.TypeClient},
	{ID: onCall, Name: "on call", Color: "#00ff00", Type: coverage.TypeSupport, IsSystem: true},
	{ID: bench, Name: "bench", Color: "#999999", Type: coverage.TypeInternal},
	{ID: gemini, Name: "Gemini", Color: "#0000ff", Type: coverage.TypeClient},
}

var roster = []coverage.Team{
	{
		ID: 1, Name: "platform", LeadID: 3,
		Members: []coverage.Person{
			{ID: 1, Name: "bob"},
			{ID: 2, Name: "alice"},
			{ID: 3, Name: "Zed"},
			{ID: 4, Name: "dave"},
			{ID: 5, Name: "Eve"},
		},
	},
	{
		ID: 2, Name: "Apps", LeadID: 6,
		Members: []coverage.Person{
			{ID: 7, Name: "grace"},
			{ID: 6, Name: "frank"},
		},
	},
}

type fixture struct {
	remote *store.Memory
	grid   *coverage.Grid
	weeks  []calendar.Date
}

// newFixture returns a grid hydrated for Q1 2026 (Monday-first weeks).
func newFixture(t *testing.T, opts ...coverage.GridOption) *fixture {
	t.Helper()

	remote := store.NewMemory()
	remote.PutSchedule(coverage.Schedule{ID: schedule, Name: "Q1 rota", Year: 2026, Quarter: 1})
	remote.SetRoster(roster)
	remote.SetCatalog(catalog)

	weeks, err := calendar.QuarterWeeks(2026, 1, time.Monday)
	require.NoError(t, err)

	opts = append([]coverage.GridOption{coverage.WithLogger(zaptest.NewLogger(t))}, opts...)
	grid := coverage.NewGrid(schedule, remote, opts...)
	span, _ := calendar.Span(weeks)
	require.NoError(t, grid.Hydrate(context.Background(), span))

	return &fixture{remote: remote, grid: grid, weeks: weeks}
}

func people(ids ...coverage.PersonID) []coverage.PersonID { return ids }
