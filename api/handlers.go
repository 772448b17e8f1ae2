/*
handlers.go - HTTP API handlers for the schedule service

PURPOSE:
  Exposes schedules, their assignment directory and the derived coverage
  views via REST. Handles HTTP request/response and JSON serialization, and
  delegates to the store, the coverage engine and the progress model.

ENDPOINTS:
  Schedules:
    GET    /api/schedules                       List schedules
    POST   /api/schedules                       Create schedule
    GET    /api/schedules/{id}                  Schedule with its quarter window
    DELETE /api/schedules/{id}                  Delete schedule
    GET    /api/schedules/{id}/directory        Snapshot (?start=&end=, default quarter)
    PUT    /api/schedules/{id}/assignments      Set one cell
    POST   /api/schedules/{id}/assignments/bulk Set many cells atomically
    GET    /api/schedules/{id}/weeks            Quarter weeks with holidays
    GET    /api/schedules/{id}/gaps             Sentinel gaps (?project=)
    GET    /api/schedules/{id}/stats            Allocation stats
    GET    /api/schedules/{id}/reports          Monitor history (?limit=)
    GET    /api/schedules/{id}/outlook          On call and leave, this week and next (?as_of=)

  Roster:
    GET    /api/people                          List people
    PUT    /api/people/{id}                     Upsert person
    PUT    /api/teams/{id}                      Upsert team + members
    PUT    /api/projects/{id}                   Upsert project

  Calendar & limits:
    GET    /api/calendar/holidays               US federal holidays (?year=)
    GET    /api/calendar/weeks                  Quarter weeks (?year=&quarter=)
    GET    /api/limits/{kind}                   tenure | cycle table
    PUT    /api/limits/{kind}                   Set one level's limit
    GET    /api/progress                        Tenure/cycle progress (?as_of=)

ARCHITECTURE:
  Handler holds all dependencies:
  - store:   CRUD and limit tables (SQLite)
  - adapter: the SyncAdapter used for directory reads and assignment writes;
             the store itself, or the Redis cache in front of it

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Reference to a missing person, project or team
  - 429: Rate limited
  - 500: Internal errors
  - 502: Directory unavailable while hydrating a view

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
	"github.com/warp/coverage-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store        *sqlite.Store
	adapter      coverage.SyncAdapter
	holidays     *calendar.USFederal
	log          *zap.Logger
	metrics      *Metrics
	monitor      *Monitor
	sentinel     string
	firstWeekday time.Weekday
	today        func() calendar.Date

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAdapter routes directory reads and assignment writes through a,
// typically a cache in front of the store.
func WithAdapter(a coverage.SyncAdapter) HandlerOption {
	return func(h *Handler) { h.adapter = a }
}

func WithLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithMonitor enables POST /api/admin/coverage-check.
func WithMonitor(m *Monitor) HandlerOption {
	return func(h *Handler) { h.monitor = m }
}

// WithSentinel sets the default project name for gap checks.
func WithSentinel(name string) HandlerOption {
	return func(h *Handler) { h.sentinel = name }
}

func WithFirstWeekday(wd time.Weekday) HandlerOption {
	return func(h *Handler) { h.firstWeekday = wd }
}

// WithClock overrides "today" for progress and holiday defaults.
func WithClock(today func() calendar.Date) HandlerOption {
	return func(h *Handler) { h.today = today }
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:        store,
		adapter:      store,
		holidays:     calendar.NewUSFederal(),
		log:          zap.NewNop(),
		sentinel:     coverage.DefaultSentinel,
		firstWeekday: calendar.DefaultFirstWeekday,
		today:        calendar.Today,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics()
	}
	return h
}

// Optional capabilities of the adapter (the Redis cache has them).
type (
	scheduleInvalidator interface {
		Invalidate(ctx context.Context, id coverage.ScheduleID)
	}
	rosterInvalidator interface {
		InvalidateAll(ctx context.Context)
	}
	pinger interface {
		Ping(ctx context.Context) error
	}
)

func (h *Handler) invalidateSchedule(ctx context.Context, id coverage.ScheduleID) {
	if inv, ok := h.adapter.(scheduleInvalidator); ok {
		inv.Invalidate(ctx, id)
	}
}

func (h *Handler) invalidateRoster(ctx context.Context) {
	if inv, ok := h.adapter.(rosterInvalidator); ok {
		inv.InvalidateAll(ctx)
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ListSchedules returns all schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.store.ListSchedules(r.Context())
	if err != nil {
		h.respondError(w, err, "Failed to list schedules")
		return
	}

	dtos := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		dto, err := h.toScheduleDTO(s)
		if err != nil {
			h.respondError(w, err, "Invalid stored schedule")
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSchedule creates a schedule for one quarter.
// POST /api/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	s, err := h.store.CreateSchedule(r.Context(), coverage.Schedule{Name: strings.TrimSpace(req.Name), Year: req.Year, Quarter: req.Quarter})
	if err != nil {
		h.respondError(w, err, "Failed to create schedule")
		return
	}
	dto, err := h.toScheduleDTO(s)
	if err != nil {
		h.respondError(w, err, "Failed to create schedule")
		return
	}
	h.log.Info("schedule created", zap.Int64("schedule_id", int64(s.ID)), zap.Stringer("quarter", s.CalendarQuarter()))
	writeJSON(w, http.StatusCreated, dto)
}

// GetSchedule returns one schedule.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	dto, err := h.toScheduleDTO(s)
	if err != nil {
		h.respondError(w, err, "Invalid stored schedule")
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteSchedule removes a schedule with its assignments and reports.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err, "Invalid schedule ID")
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), coverage.ScheduleID(id)); err != nil {
		h.respondError(w, err, "Failed to delete schedule")
		return
	}
	h.invalidateSchedule(r.Context(), coverage.ScheduleID(id))
	h.metrics.forgetSchedule(coverage.ScheduleID(id))
	w.WriteHeader(http.StatusNoContent)
}

// GetDirectory returns the schedule's snapshot for a window.
// GET /api/schedules/{id}/directory?start=2026-01-05&end=2026-01-26
func (h *Handler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	window, err := h.windowFromQuery(r, s)
	if err != nil {
		h.respondError(w, err, "Invalid window")
		return
	}

	snap, err := h.adapter.Load(r.Context(), coverage.DirectoryQuery{ScheduleID: s.ID, Range: window})
	if err != nil {
		h.respondError(w, err, "Failed to load directory")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SetAssignment writes one cell. project_id 0 clears it.
// PUT /api/schedules/{id}/assignments
func (h *Handler) SetAssignment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	var req AssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WeekStart.IsZero() {
		writeError(w, http.StatusBadRequest, "week_start is required", nil)
		return
	}

	set := coverage.SetAssignmentRequest{
		RequestID:  req.RequestID,
		ScheduleID: s.ID,
		Person:     req.Person,
		WeekStart:  calendar.WeekStart(req.WeekStart, h.firstWeekday),
		Project:    req.Project,
	}
	err := h.adapter.SetAssignment(r.Context(), set)
	h.metrics.observeMutation("set", []coverage.BulkItem{{Person: set.Person, WeekStart: set.WeekStart, Project: set.Project}}, err)
	if err != nil {
		h.respondError(w, err, "Failed to set assignment")
		return
	}
	h.log.Debug("assignment set",
		zap.Int64("schedule_id", int64(s.ID)),
		zap.Int64("person_id", int64(set.Person)),
		zap.Stringer("week_start", set.WeekStart),
		zap.Int64("project_id", int64(set.Project)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// BulkSetAssignments writes many cells in one transaction.
// POST /api/schedules/{id}/assignments/bulk
func (h *Handler) BulkSetAssignments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	var req BulkAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		h.respondError(w, coverage.ErrEmptyBatch, "No items to write")
		return
	}

	items := make([]coverage.BulkItem, len(req.Items))
	for i, item := range req.Items {
		if item.WeekStart.IsZero() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("items[%d]: week_start is required", i), nil)
			return
		}
		item.WeekStart = calendar.WeekStart(item.WeekStart, h.firstWeekday)
		items[i] = item
	}

	err := h.adapter.BulkSetAssignments(r.Context(), coverage.BulkSetRequest{
		RequestID:  req.RequestID,
		ScheduleID: s.ID,
		Items:      items,
	})
	h.metrics.observeMutation("bulk", items, err)
	if err != nil {
		h.respondError(w, err, "Failed to write assignments")
		return
	}
	h.log.Debug("assignments written", zap.Int64("schedule_id", int64(s.ID)), zap.Int("cells", len(items)))
	w.WriteHeader(http.StatusNoContent)
}

// ListScheduleWeeks returns the schedule's quarter weeks with holiday names.
func (h *Handler) ListScheduleWeeks(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	weeks, err := s.CalendarQuarter().Weeks(h.firstWeekday)
	if err != nil {
		h.respondError(w, err, "Invalid schedule quarter")
		return
	}
	writeJSON(w, http.StatusOK, calendar.AnnotateWeeks(weeks, h.holidays))
}

// GetCoverageGaps checks the schedule's quarter for weeks without the
// sentinel project. The result is not stored; the monitor does that.
// GET /api/schedules/{id}/gaps?project=On%20Call
func (h *Handler) GetCoverageGaps(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	sentinel := h.sentinel
	if p := strings.TrimSpace(r.URL.Query().Get("project")); p != "" {
		sentinel = p
	}

	report, err := coverage.CheckSchedule(r.Context(), h.adapter, s, sentinel, h.gridOptions()...)
	if err != nil {
		h.respondError(w, err, "Failed to check coverage")
		return
	}
	h.metrics.observeReport(report)
	writeJSON(w, http.StatusOK, report)
}

// GetStats returns per-project and per-type allocation for the quarter.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	weeks, err := s.CalendarQuarter().Weeks(h.firstWeekday)
	if err != nil {
		h.respondError(w, err, "Invalid schedule quarter")
		return
	}
	span, _ := calendar.Span(weeks)

	grid := coverage.NewGrid(s.ID, h.adapter, h.gridOptions()...)
	if err := grid.Hydrate(r.Context(), span); err != nil {
		h.respondError(w, err, "Failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, coverage.ComputeStats(grid, weeks))
}

// GetOutlook returns who is on call this week and next, plus leave and
// holidays over the coming month.
// GET /api/schedules/{id}/outlook?as_of=2026-01-15
func (h *Handler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	today := h.today()
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err := calendar.ParseDate(v)
		if err != nil {
			h.respondError(w, err, "Invalid as_of date")
			return
		}
		today = asOf
	}

	grid := coverage.NewGrid(s.ID, h.adapter, h.gridOptions()...)
	if err := grid.Hydrate(r.Context(), coverage.OutlookWindow(today, h.firstWeekday)); err != nil {
		h.respondError(w, err, "Failed to load schedule")
		return
	}
	writeJSON(w, http.StatusOK, coverage.BuildOutlook(grid, h.holidays, today, h.sentinel))
}

// ListReports returns stored monitor reports, newest first.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	s, ok := h.scheduleFromPath(w, r)
	if !ok {
		return
	}
	limit, err := intQuery(r, "limit", 20)
	if err != nil {
		h.respondError(w, err, "Invalid limit")
		return
	}
	reports, err := h.store.ListCoverageReports(r.Context(), s.ID, limit)
	if err != nil {
		h.respondError(w, err, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []coverage.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ListPeople returns all people.
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.respondError(w, err, "Failed to list people")
		return
	}
	if people == nil {
		people = []PersonDTO{}
	}
	writeJSON(w, http.StatusOK, people)
}

// SavePerson upserts a person.
// PUT /api/people/{id}
func (h *Handler) SavePerson(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err, "Invalid person ID")
		return
	}
	var p PersonDTO
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = coverage.PersonID(id)
	if strings.TrimSpace(p.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	if err := h.store.SavePerson(r.Context(), p); err != nil {
		h.respondError(w, err, "Failed to save person")
		return
	}
	h.invalidateRoster(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// SaveTeam upserts a team and replaces its members.
// PUT /api/teams/{id}
func (h *Handler) SaveTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err, "Invalid team ID")
		return
	}
	var req TeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	team := coverage.Team{ID: coverage.TeamID(id), Name: req.Name, LeadID: req.LeadID}
	for _, m := range req.MemberIDs {
		team.Members = append(team.Members, coverage.Person{ID: m})
	}
	if err := h.store.SaveTeam(r.Context(), team); err != nil {
		h.respondError(w, err, "Failed to save team")
		return
	}
	h.invalidateRoster(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SaveProject upserts a catalog entry.
// PUT /api/projects/{id}
func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err, "Invalid project ID")
		return
	}
	if id == int64(coverage.NoProject) {
		writeError(w, http.StatusBadRequest, "project ID 0 is reserved for unassigned cells", nil)
		return
	}
	var req ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	p := coverage.Project{ID: coverage.ProjectID(id), Name: req.Name, Color: req.Color, Type: req.Type, IsSystem: req.IsSystem}
	if err := h.store.SaveProject(r.Context(), p); err != nil {
		h.respondError(w, err, "Failed to save project")
		return
	}
	h.invalidateRoster(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListHolidays returns the observed US federal holidays of a year.
// GET /api/calendar/holidays?year=2026
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", h.today().Year())
	if err != nil {
		h.respondError(w, err, "Invalid year")
		return
	}

	holidays := h.holidays.HolidaysForYear(year)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			Name:     hol.Name,
			Date:     hol.Date,
			Observed: hol.Observed,
			Weekday:  hol.Date.Weekday().String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListQuarterWeeks returns a quarter's week starts with holiday names.
// GET /api/calendar/weeks?year=2026&quarter=1
func (h *Handler) ListQuarterWeeks(w http.ResponseWriter, r *http.Request) {
	current := calendar.QuarterOf(h.today())
	year, err := intQuery(r, "year", current.Year)
	if err != nil {
		h.respondError(w, err, "Invalid year")
		return
	}
	q, err := intQuery(r, "quarter", current.Q)
	if err != nil {
		h.respondError(w, err, "Invalid quarter")
		return
	}

	weeks, err := calendar.QuarterWeeks(year, q, h.firstWeekday)
	if err != nil {
		h.respondError(w, err, "Invalid quarter")
		return
	}
	writeJSON(w, http.StatusOK, calendar.AnnotateWeeks(weeks, h.holidays))
}

// =============================================================================
// LIMITS & PROGRESS HANDLERS
// =============================================================================

// GetLimits returns one limit table in job level order.
// GET /api/limits/{kind}
func (h *Handler) GetLimits(w http.ResponseWriter, r *http.Request) {
	kind := progress.LimitKind(chi.URLParam(r, "kind"))
	rows, err := h.store.LevelLimits(r.Context(), kind)
	if err != nil {
		h.respondError(w, err, "Failed to load limits")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// SetLimit stores one level's limit. limit_months 0 removes it.
// PUT /api/limits/{kind}
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	kind := progress.LimitKind(chi.URLParam(r, "kind"))
	var l progress.LevelLimit
	if !decodeJSON(w, r, &l) {
		return
	}
	if err := h.store.SetLevelLimit(r.Context(), kind, l); err != nil {
		h.respondError(w, err, "Failed to set limit")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// GetProgress evaluates every person against the tenure and cycle tables.
// GET /api/progress?as_of=2026-03-15
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	clock := h.today
	if s := r.URL.Query().Get("as_of"); s != "" {
		asOf, err := calendar.ParseDate(s)
		if err != nil {
			h.respondError(w, err, "Invalid as_of date")
			return
		}
		clock = func() calendar.Date { return asOf }
	}

	people, err := h.store.ListPeople(r.Context())
	if err != nil {
		h.respondError(w, err, "Failed to list people")
		return
	}
	members := make([]progress.Member, len(people))
	for i, p := range people {
		members[i] = p.Member()
	}

	tracker := progress.NewTracker(progress.NewModel(progress.WithClock(clock)), h.store)
	entries, err := tracker.Evaluate(r.Context(), members)
	if err != nil {
		h.respondError(w, err, "Failed to evaluate progress")
		return
	}

	dtos := make([]ProgressDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ProgressDTO{
			Member:      e.Member,
			Tenure:      e.Tenure,
			TenureLabel: e.Tenure.Label(),
			Cycle:       e.Cycle,
			CycleLabel:  e.Cycle.Label(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN & HEALTH
// =============================================================================

// RunCoverageCheck runs the coverage monitor once and returns its reports.
// POST /api/admin/coverage-check
func (h *Handler) RunCoverageCheck(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeError(w, http.StatusServiceUnavailable, "Coverage monitor not configured", nil)
		return
	}
	reports, err := h.monitor.RunNow(r.Context())
	if err != nil {
		h.respondError(w, err, "Coverage check failed")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Health reports store and cache reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "store": "ok", "cache": "disabled"}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status["status"], status["store"] = "degraded", err.Error()
		code = http.StatusServiceUnavailable
	}
	if p, ok := h.adapter.(pinger); ok && h.adapter != coverage.SyncAdapter(h.store) {
		status["cache"] = "ok"
		if err := p.Ping(ctx); err != nil {
			status["cache"] = err.Error()
		}
	}
	writeJSON(w, code, status)
}

// =============================================================================
// HELPERS
// =============================================================================

// errBadRequest marks malformed path or query parameters.
var errBadRequest = errors.New("bad request")

func (h *Handler) gridOptions() []coverage.GridOption {
	return []coverage.GridOption{coverage.WithFirstWeekday(h.firstWeekday), coverage.WithLogger(h.log)}
}

func (h *Handler) toScheduleDTO(s coverage.Schedule) (ScheduleDTO, error) {
	weeks, err := s.CalendarQuarter().Weeks(h.firstWeekday)
	if err != nil {
		return ScheduleDTO{}, err
	}
	span, _ := calendar.Span(weeks)
	return ScheduleDTO{
		ID:      s.ID,
		Name:    s.Name,
		Year:    s.Year,
		Quarter: s.Quarter,
		Label:   s.CalendarQuarter().String(),
		Weeks:   len(weeks),
		Start:   span.Start,
		End:     span.End,
	}, nil
}

// scheduleFromPath loads the {id} schedule, writing the error response if
// it can't.
func (h *Handler) scheduleFromPath(w http.ResponseWriter, r *http.Request) (coverage.Schedule, bool) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err, "Invalid schedule ID")
		return coverage.Schedule{}, false
	}
	s, err := h.store.GetSchedule(r.Context(), coverage.ScheduleID(id))
	if err != nil {
		h.respondError(w, err, "Schedule not found")
		return coverage.Schedule{}, false
	}
	return s, true
}

// windowFromQuery reads ?start=&end=, defaulting each bound to the
// schedule's quarter span.
func (h *Handler) windowFromQuery(r *http.Request, s coverage.Schedule) (calendar.Period, error) {
	weeks, err := s.CalendarQuarter().Weeks(h.firstWeekday)
	if err != nil {
		return calendar.Period{}, err
	}
	window, _ := calendar.Span(weeks)

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if window.Start, err = calendar.ParseDate(v); err != nil {
			return calendar.Period{}, err
		}
	}
	if v := q.Get("end"); v != "" {
		if window.End, err = calendar.ParseDate(v); err != nil {
			return calendar.Period{}, err
		}
	}
	return window, window.Validate()
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, raw)
	}
	return id, nil
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, key, raw)
	}
	return n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound), errors.Is(err, coverage.ErrUnknownTeam):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrInvalidReference):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, calendar.ErrInvalidCalendarInput),
		errors.Is(err, progress.ErrInvalidLimit),
		errors.Is(err, coverage.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, coverage.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(message, zap.Error(err), zap.Int("status", status))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
