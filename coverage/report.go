package coverage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// COVERAGE REPORT - Result of one sentinel scan over a schedule's quarter
// =============================================================================

// Report records which weeks of a schedule's quarter lacked sentinel coverage.
type Report struct {
	ID         string           `json:"id"`
	ScheduleID ScheduleID       `json:"schedule_id"`
	Quarter    calendar.Quarter `json:"quarter"`
	Sentinel   string           `json:"sentinel"`
	Weeks      int              `json:"weeks"`
	GapWeeks   []calendar.Date  `json:"gap_weeks"`
	CheckedAt  time.Time        `json:"checked_at"`
}

// Covered reports whether every week had sentinel coverage.
func (r Report) Covered() bool { return len(r.GapWeeks) == 0 }

// CheckSchedule hydrates a throwaway grid for the schedule's quarter and
// reports its coverage gaps.
func CheckSchedule(ctx context.Context, adapter SyncAdapter, s Schedule, sentinel string, opts ...GridOption) (Report, error) {
	grid := NewGrid(s.ID, adapter, opts...)
	weeks, err := s.CalendarQuarter().Weeks(grid.FirstWeekday())
	if err != nil {
		return Report{}, err
	}
	span, _ := calendar.Span(weeks)
	if err := grid.Hydrate(ctx, span); err != nil {
		return Report{}, err
	}
	return Report{
		ID:         uuid.NewString(),
		ScheduleID: s.ID,
		Quarter:    s.CalendarQuarter(),
		Sentinel:   sentinel,
		Weeks:      len(weeks),
		GapWeeks:   grid.CoverageGaps(sentinel, weeks),
		CheckedAt:  time.Now().UTC(),
	}, nil
}
