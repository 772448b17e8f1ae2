package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
)

// checkedAtLayout is fixed-width so checked_at sorts as text.
const checkedAtLayout = "2006-01-02T15:04:05.000000000Z"

// SaveCoverageReport stores a monitor result.
func (s *Store) SaveCoverageReport(ctx context.Context, r coverage.Report) error {
	gaps := r.GapWeeks
	if gaps == nil {
		gaps = []calendar.Date{}
	}
	gapJSON, err := json.Marshal(gaps)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO coverage_reports (id, schedule_id, year, quarter, sentinel, weeks, gap_weeks_json, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ScheduleID, r.Quarter.Year, r.Quarter.Q, r.Sentinel, r.Weeks,
		string(gapJSON), r.CheckedAt.UTC().Format(checkedAtLayout),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("schedule %d: %w", r.ScheduleID, ErrInvalidReference)
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("report %s already stored: %w", r.ID, err)
	}
	return err
}

// ListCoverageReports returns a schedule's reports, newest first. limit <= 0
// returns all of them.
func (s *Store) ListCoverageReports(ctx context.Context, id coverage.ScheduleID, limit int) ([]coverage.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, schedule_id, year, quarter, sentinel, weeks, gap_weeks_json, checked_at
		FROM coverage_reports
		WHERE schedule_id = ?
		ORDER BY checked_at DESC, id`
	args := []any{id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []coverage.Report
	for rows.Next() {
		var (
			r         coverage.Report
			gapJSON   string
			checkedAt string
		)
		if err := rows.Scan(&r.ID, &r.ScheduleID, &r.Quarter.Year, &r.Quarter.Q,
			&r.Sentinel, &r.Weeks, &gapJSON, &checkedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(gapJSON), &r.GapWeeks); err != nil {
			return nil, fmt.Errorf("report %s: %w", r.ID, err)
		}
		if r.CheckedAt, err = time.Parse(checkedAtLayout, checkedAt); err != nil {
			return nil, fmt.Errorf("report %s: %w", r.ID, err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
