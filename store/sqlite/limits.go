package sqlite

import (
	"context"
	"fmt"

	"github.com/warp/coverage-engine/progress"
)

// LevelLimits returns one limit table, ordered by job level display order.
func (s *Store) LevelLimits(ctx context.Context, kind progress.LimitKind) ([]progress.LevelLimit, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", progress.ErrInvalidLimit, kind)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT job_level, limit_months FROM level_limits WHERE kind = ?", string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := progress.LimitTable{}
	for rows.Next() {
		var l progress.LevelLimit
		if err := rows.Scan(&l.JobLevel, &l.LimitMonths); err != nil {
			return nil, err
		}
		table[l.JobLevel] = l.LimitMonths
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table.Rows(), nil
}

// SetLevelLimit stores one row of a limit table. 0 months clears it.
func (s *Store) SetLevelLimit(ctx context.Context, kind progress.LimitKind, l progress.LevelLimit) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", progress.ErrInvalidLimit, kind)
	}
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.LimitMonths == 0 {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM level_limits WHERE kind = ? AND job_level = ?", string(kind), l.JobLevel,
		)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_limits (kind, job_level, limit_months) VALUES (?, ?, ?)
		ON CONFLICT(kind, job_level) DO UPDATE SET limit_months = excluded.limit_months`,
		string(kind), l.JobLevel, l.LimitMonths,
	)
	return err
}
