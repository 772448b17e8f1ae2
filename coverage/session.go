package coverage

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// SESSION - Stale hydration suppression
// =============================================================================

// Session drives a Grid from a view that can change its selected range at any
// time. Only the result for the currently requested range is applied; a
// superseded load is cancelled and reports ErrStaleRequest.
type Session struct {
	grid *Grid
	log  *zap.Logger

	mu      sync.Mutex
	current calendar.Period
	seq     uint64
	cancel  context.CancelFunc
}

// NewSession wraps a grid.
func NewSession(grid *Grid, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{grid: grid, log: log.With(zap.Int64("schedule_id", int64(grid.Schedule())))}
}

// Grid returns the session's grid.
func (s *Session) Grid() *Grid { return s.grid }

// Requested returns the range of the latest Load call.
func (s *Session) Requested() calendar.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load hydrates the grid for window. If another Load starts before this one
// finishes, this one is cancelled and returns ErrStaleRequest without
// touching the grid. Remote failures leave the grid unchanged.
func (s *Session) Load(ctx context.Context, window calendar.Period) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.current = window
	s.cancel = cancel
	s.mu.Unlock()

	defer s.release(seq, cancel)

	snap, err := s.grid.fetch(ctx, window)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Equal(window) {
		s.log.Debug("discarding stale hydration",
			zap.Stringer("result_range", window),
			zap.Stringer("requested_range", s.current))
		return ErrStaleRequest
	}
	if err != nil {
		if seq != s.seq && errors.Is(err, context.Canceled) {
			return ErrStaleRequest
		}
		return err
	}
	if !snap.Range.Equal(s.current) {
		s.log.Debug("discarding snapshot for a different range",
			zap.Stringer("result_range", snap.Range),
			zap.Stringer("requested_range", s.current))
		return ErrStaleRequest
	}
	s.grid.Apply(snap)
	return nil
}

// LoadQuarter hydrates the span of a quarter's weeks and returns those weeks.
func (s *Session) LoadQuarter(ctx context.Context, q calendar.Quarter) ([]calendar.Date, error) {
	weeks, err := q.Weeks(s.grid.FirstWeekday())
	if err != nil {
		return nil, err
	}
	span, _ := calendar.Span(weeks)
	if err := s.Load(ctx, span); err != nil {
		return nil, err
	}
	return weeks, nil
}

// Close cancels any in-flight load.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) release(seq uint64, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	if s.seq == seq {
		s.cancel = nil
	}
	s.mu.Unlock()
}
