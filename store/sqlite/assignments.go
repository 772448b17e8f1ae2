package sqlite

import (
	"context"
	"fmt"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
)

// =============================================================================
// ASSIGNMENTS (coverage.Mutator)
// =============================================================================

// SetAssignment writes one cell. NoProject deletes the row.
func (s *Store) SetAssignment(ctx context.Context, req coverage.SetAssignmentRequest) error {
	return s.BulkSetAssignments(ctx, coverage.BulkSetRequest{
		RequestID:  req.RequestID,
		ScheduleID: req.ScheduleID,
		Items: []coverage.BulkItem{
			{Person: req.Person, WeekStart: req.WeekStart, Project: req.Project},
		},
	})
}

// BulkSetAssignments writes every item in one transaction.
func (s *Store) BulkSetAssignments(ctx context.Context, req coverage.BulkSetRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, func(q querier) error {
		if _, err := getSchedule(ctx, q, req.ScheduleID); err != nil {
			return err
		}
		if req.RequestID != "" {
			applied, err := requestApplied(ctx, q, req.RequestID)
			if err != nil || applied {
				return err
			}
		}

		stamp := now()
		for _, item := range req.Items {
			if err := writeCell(ctx, q, req.ScheduleID, item, stamp); err != nil {
				return err
			}
		}

		if req.RequestID != "" {
			_, err := q.ExecContext(ctx,
				"INSERT INTO applied_requests (request_id, applied_at) VALUES (?, ?)",
				req.RequestID, stamp,
			)
			return err
		}
		return nil
	})
	if isForeignKeyError(err) {
		return fmt.Errorf("schedule %d: %w", req.ScheduleID, ErrInvalidReference)
	}
	return err
}

func writeCell(ctx context.Context, q querier, schedule coverage.ScheduleID, item coverage.BulkItem, stamp string) error {
	if item.WeekStart.IsZero() {
		return fmt.Errorf("person %d: %w: week start is required", item.Person, calendar.ErrInvalidCalendarInput)
	}
	if item.Project == coverage.NoProject {
		_, err := q.ExecContext(ctx,
			"DELETE FROM schedule_assignments WHERE schedule_id = ? AND person_id = ? AND week_start = ?",
			schedule, item.Person, item.WeekStart,
		)
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedule_assignments (schedule_id, person_id, project_id, week_start, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(schedule_id, person_id, week_start) DO UPDATE SET
			project_id = excluded.project_id,
			updated_at = excluded.updated_at`,
		schedule, item.Person, item.Project, item.WeekStart, stamp,
	)
	return err
}

func requestApplied(ctx context.Context, q querier, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM applied_requests WHERE request_id = ?", id).Scan(&n)
	return n > 0, err
}
