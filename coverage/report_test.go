package coverage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/coverage/store"
)

func TestCheckSchedule(t *testing.T) {
	// GIVEN: A Q1 2026 schedule with On Call in the first and last weeks only
	remote := store.NewMemory()
	sch := coverage.Schedule{ID: schedule, Name: "Q1 rota", Year: 2026, Quarter: 1}
	remote.PutSchedule(sch)
	remote.SetRoster(roster)
	remote.SetCatalog(catalog)
	remote.Seed(schedule,
		coverage.Assignment{Person: 1, Project: onCall, WeekStart: calendar.NewDate(2025, 12, 29)},
		coverage.Assignment{Person: 2, Project: onCall, WeekStart: calendar.NewDate(2026, 3, 30)},
		coverage.Assignment{Person: 3, Project: apollo, WeekStart: calendar.NewDate(2026, 1, 5)},
	)

	// WHEN: The schedule is checked against "On Call"
	report, err := coverage.CheckSchedule(context.Background(), remote, sch, coverage.DefaultSentinel)
	require.NoError(t, err)

	// THEN: The twelve weeks in between are gaps
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, schedule, report.ScheduleID)
	assert.Equal(t, calendar.Quarter{Year: 2026, Q: 1}, report.Quarter)
	assert.Equal(t, 14, report.Weeks)
	require.Len(t, report.GapWeeks, 12)
	assert.Equal(t, calendar.NewDate(2026, 1, 5), report.GapWeeks[0])
	assert.Equal(t, calendar.NewDate(2026, 3, 23), report.GapWeeks[11])
	assert.False(t, report.Covered())
	assert.False(t, report.CheckedAt.IsZero())
}

func TestCheckSchedule_AdapterFailure(t *testing.T) {
	remote := store.NewMemory()
	sch := coverage.Schedule{ID: schedule, Year: 2026, Quarter: 1}
	remote.PutSchedule(sch)
	remote.FailNext(errors.New("connection reset"))

	_, err := coverage.CheckSchedule(context.Background(), remote, sch, coverage.DefaultSentinel)
	assert.True(t, coverage.IsRecoverable(err))
}

func TestCheckSchedule_InvalidQuarter(t *testing.T) {
	remote := store.NewMemory()
	_, err := coverage.CheckSchedule(context.Background(), remote, coverage.Schedule{ID: 9, Year: 2026, Quarter: 0}, coverage.DefaultSentinel)
	assert.ErrorIs(t, err, calendar.ErrInvalidCalendarInput)
	assert.Zero(t, remote.Calls().Loads)
}
