/*
monitor.go - Background coverage monitor

PURPOSE:
  Periodically checks every active schedule for weeks without the sentinel
  project (On Call by default), stores a coverage report per schedule and
  logs a warning for each uncovered schedule.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Active schedules are those whose quarter has not ended
  - Checks fan out over an errgroup bounded by Concurrency
  - A failing schedule is logged and counted; the others still complete
  - Records one coverage_reports row per successful check

CONFIGURATION:
  - Interval:    How often to check (default: 1 hour)
  - Concurrency: Schedules checked in parallel (default: 4)
  - Enabled:     Whether the loop runs (RunNow works either way)

USAGE:
  monitor := NewMonitor(store, adapter, cfg, log, metrics)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: RunCoverageCheck endpoint (manual check)
  - coverage/report.go: CheckSchedule
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/store/sqlite"
)

// MonitorConfig controls the coverage monitor.
type MonitorConfig struct {
	Enabled      bool
	Interval     time.Duration
	Concurrency  int
	Sentinel     string
	FirstWeekday time.Weekday
}

// DefaultMonitorConfig matches the config package defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:      true,
		Interval:     time.Hour,
		Concurrency:  4,
		Sentinel:     coverage.DefaultSentinel,
		FirstWeekday: calendar.DefaultFirstWeekday,
	}
}

// Monitor scans schedules for sentinel gaps in the background.
type Monitor struct {
	store   *sqlite.Store
	adapter coverage.SyncAdapter
	cfg     MonitorConfig
	log     *zap.Logger
	metrics *Metrics
	today   func() calendar.Date

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastRun time.Time
}

// NewMonitor creates a monitor. adapter is where schedules are read from;
// pass the store itself when there is no cache.
func NewMonitor(store *sqlite.Store, adapter coverage.SyncAdapter, cfg MonitorConfig, log *zap.Logger, metrics *Metrics) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if adapter == nil {
		adapter = store
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = coverage.DefaultSentinel
	}
	return &Monitor{
		store:   store,
		adapter: adapter,
		cfg:     cfg,
		log:     log.Named("monitor"),
		metrics: metrics,
		today:   calendar.Today,
	}
}

// Start begins the periodic loop. It is a no-op when disabled or running.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Enabled {
		m.log.Info("disabled, not starting")
		return
	}
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx)

	m.log.Info("started", zap.Duration("interval", m.cfg.Interval), zap.Int("concurrency", m.cfg.Concurrency))
}

// Stop cancels the loop and any in-flight check, then waits for it.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.log.Info("stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start
	m.check(ctx)

	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil && ctx.Err() == nil {
		m.log.Error("coverage check failed", zap.Error(err))
	}
}

// RunNow checks every active schedule once and returns the stored reports
// in schedule list order. Per-schedule failures are logged, not returned.
func (m *Monitor) RunNow(ctx context.Context) ([]coverage.Report, error) {
	schedules, err := m.store.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	today := m.today()

	var active []coverage.Schedule
	for _, s := range schedules {
		if !s.CalendarQuarter().LastDay().Before(today) {
			active = append(active, s)
		}
	}

	results := make([]*coverage.Report, len(active))
	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for i, s := range active {
		g.Go(func() error {
			report, err := m.checkSchedule(ctx, s)
			if err != nil {
				m.metrics.monitorRuns.WithLabelValues("error").Inc()
				m.log.Warn("schedule check failed", zap.Int64("schedule_id", int64(s.ID)), zap.Error(err))
				return nil
			}
			results[i] = &report
			return nil
		})
	}
	g.Wait()

	reports := make([]coverage.Report, 0, len(active))
	for _, r := range results {
		if r != nil {
			reports = append(reports, *r)
		}
	}

	m.mu.Lock()
	m.lastRun = time.Now()
	m.mu.Unlock()

	if len(active) > 0 {
		m.log.Info("coverage check completed", zap.Int("checked", len(reports)), zap.Int("failed", len(active)-len(reports)))
	}
	return reports, ctx.Err()
}

func (m *Monitor) checkSchedule(ctx context.Context, s coverage.Schedule) (coverage.Report, error) {
	report, err := coverage.CheckSchedule(ctx, m.adapter, s, m.cfg.Sentinel,
		coverage.WithFirstWeekday(m.cfg.FirstWeekday), coverage.WithLogger(m.log))
	if err != nil {
		return coverage.Report{}, err
	}
	if err := m.store.SaveCoverageReport(ctx, report); err != nil {
		return coverage.Report{}, err
	}

	m.metrics.monitorRuns.WithLabelValues("ok").Inc()
	m.metrics.observeReport(report)
	if !report.Covered() {
		gaps := make([]string, len(report.GapWeeks))
		for i, w := range report.GapWeeks {
			gaps[i] = w.String()
		}
		m.log.Warn("schedule has coverage gaps",
			zap.Int64("schedule_id", int64(s.ID)),
			zap.String("schedule", s.Name),
			zap.String("sentinel", m.cfg.Sentinel),
			zap.Strings("gap_weeks", gaps),
		)
	}
	return report, nil
}

// LastRun returns when the last check finished, zero if none has.
func (m *Monitor) LastRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRun
}

// NextRun estimates when the next scheduled check will occur.
func (m *Monitor) NextRun() time.Time {
	last := m.LastRun()
	if last.IsZero() {
		return time.Now()
	}
	return last.Add(m.cfg.Interval)
}
