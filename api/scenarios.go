/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for testing and demos. Scenarios are YAML files embedded from
  scenarios/*.yaml.

AVAILABLE SCENARIOS:
  platform-rota:      Two teams, On Call rotation for 2026 Q1 with two gaps
  uncovered-quarter:  2026 Q4 with client work and no rotation (all gaps)
  two-quarters:       2026 Q3 + Q4, fully covered

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create schedules, people, projects, teams
 3. Write tenure and cycle limit tables
 4. Expand rotations round-robin over the schedule's weeks
 5. Write explicit assignments (all weeks when none are listed)

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "platform-rota"}

ADDING NEW SCENARIOS:
  Drop a YAML file in scenarios/. Week indexes are 0-based positions in the
  schedule's week list; schedule indexes refer to the file's schedules list.

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - cmd/server/main.go: serve --scenario
*/
package api

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"path"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
	"github.com/warp/coverage-engine/store/sqlite"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO `yaml:",inline"`
	Order       int `yaml:"order"`

	Schedules []struct {
		Name    string `yaml:"name"`
		Year    int    `yaml:"year"`
		Quarter int    `yaml:"quarter"`
	} `yaml:"schedules"`

	People []struct {
		ID             coverage.PersonID `yaml:"id"`
		Name           string            `yaml:"name"`
		JobLevel       string            `yaml:"job_level"`
		LevelStartDate calendar.Date     `yaml:"level_start_date"`
		CycleStartDate calendar.Date     `yaml:"cycle_start_date"`
	} `yaml:"people"`

	Teams []struct {
		ID        coverage.TeamID     `yaml:"id"`
		Name      string              `yaml:"name"`
		LeadID    coverage.PersonID   `yaml:"lead_id"`
		MemberIDs []coverage.PersonID `yaml:"member_ids"`
	} `yaml:"teams"`

	Projects []struct {
		ID       coverage.ProjectID   `yaml:"id"`
		Name     string               `yaml:"name"`
		Color    string               `yaml:"color"`
		Type     coverage.ProjectType `yaml:"type"`
		IsSystem bool                 `yaml:"is_system"`
	} `yaml:"projects"`

	Limits map[progress.LimitKind]map[string]int `yaml:"limits"`

	Rotations []struct {
		Schedule  int                 `yaml:"schedule"`
		Project   coverage.ProjectID  `yaml:"project"`
		People    []coverage.PersonID `yaml:"people"`
		SkipWeeks []int               `yaml:"skip_weeks"`
	} `yaml:"rotations"`

	Assignments []struct {
		Schedule int                `yaml:"schedule"`
		Person   coverage.PersonID  `yaml:"person"`
		Project  coverage.ProjectID `yaml:"project"`
		Weeks    []int              `yaml:"weeks"`
	} `yaml:"assignments"`
}

var loadScenarios = sync.OnceValues(func() ([]scenario, error) {
	files, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil, err
	}
	var out []scenario
	for _, f := range files {
		raw, err := scenarioFS.ReadFile(path.Join("scenarios", f.Name()))
		if err != nil {
			return nil, err
		}
		var s scenario
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", f.Name(), err)
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b scenario) int { return a.Order - b.Order })
	return out, nil
})

// Scenarios lists the embedded scenarios in display order.
func Scenarios() ([]ScenarioDTO, error) {
	all, err := loadScenarios()
	if err != nil {
		return nil, err
	}
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = s.ScenarioDTO
	}
	return dtos, nil
}

func findScenario(id string) (scenario, error) {
	all, err := loadScenarios()
	if err != nil {
		return scenario{}, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return scenario{}, fmt.Errorf("%w: unknown scenario %q", errBadRequest, id)
}

// =============================================================================
// HTTP HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos, err := Scenarios()
	if err != nil {
		h.respondError(w, err, "Failed to read scenarios")
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, err := findScenario(current)
	if err != nil {
		h.respondError(w, err, "Failed to read scenarios")
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.respondError(w, err, "Failed to load scenario")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		h.respondError(w, err, "Failed to reset database")
		return
	}
	h.invalidateRoster(r.Context())
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

// LoadScenarioByID resets the store and seeds it with the named scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	s, err := findScenario(id)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""
	if err := seedScenario(ctx, h.store, s, h.firstWeekday); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	h.invalidateRoster(ctx)
	h.currentScenario = id
	h.log.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

func seedScenario(ctx context.Context, store *sqlite.Store, s scenario, firstWeekday time.Weekday) error {
	for _, p := range s.People {
		err := store.SavePerson(ctx, sqlite.PersonRecord{
			Person:         coverage.Person{ID: p.ID, Name: p.Name, JobLevel: p.JobLevel},
			LevelStartDate: p.LevelStartDate,
			CycleStartDate: p.CycleStartDate,
		})
		if err != nil {
			return fmt.Errorf("person %d: %w", p.ID, err)
		}
	}
	for _, p := range s.Projects {
		err := store.SaveProject(ctx, coverage.Project{ID: p.ID, Name: p.Name, Color: p.Color, Type: p.Type, IsSystem: p.IsSystem})
		if err != nil {
			return fmt.Errorf("project %d: %w", p.ID, err)
		}
	}
	for _, t := range s.Teams {
		team := coverage.Team{ID: t.ID, Name: t.Name, LeadID: t.LeadID}
		for _, m := range t.MemberIDs {
			team.Members = append(team.Members, coverage.Person{ID: m})
		}
		if err := store.SaveTeam(ctx, team); err != nil {
			return fmt.Errorf("team %d: %w", t.ID, err)
		}
	}
	for kind, table := range s.Limits {
		for level, months := range table {
			if err := store.SetLevelLimit(ctx, kind, progress.LevelLimit{JobLevel: level, LimitMonths: months}); err != nil {
				return err
			}
		}
	}

	schedules := make([]coverage.Schedule, len(s.Schedules))
	weeks := make([][]calendar.Date, len(s.Schedules))
	for i, def := range s.Schedules {
		created, err := store.CreateSchedule(ctx, coverage.Schedule{Name: def.Name, Year: def.Year, Quarter: def.Quarter})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", def.Name, err)
		}
		schedules[i] = created
		if weeks[i], err = created.CalendarQuarter().Weeks(firstWeekday); err != nil {
			return err
		}
	}

	batches := make([][]coverage.BulkItem, len(schedules))
	scheduleIndex := func(i int) error {
		if i < 0 || i >= len(schedules) {
			return fmt.Errorf("%w: schedule index %d out of range", errBadRequest, i)
		}
		return nil
	}

	for _, rot := range s.Rotations {
		if err := scheduleIndex(rot.Schedule); err != nil {
			return err
		}
		if len(rot.People) == 0 {
			continue
		}
		k := 0
		for i, week := range weeks[rot.Schedule] {
			if slices.Contains(rot.SkipWeeks, i) {
				continue
			}
			batches[rot.Schedule] = append(batches[rot.Schedule], coverage.BulkItem{
				Person:    rot.People[k%len(rot.People)],
				WeekStart: week,
				Project:   rot.Project,
			})
			k++
		}
	}

	for _, a := range s.Assignments {
		if err := scheduleIndex(a.Schedule); err != nil {
			return err
		}
		all := weeks[a.Schedule]
		indexes := a.Weeks
		if len(indexes) == 0 {
			for i := range all {
				indexes = append(indexes, i)
			}
		}
		for _, i := range indexes {
			if i < 0 || i >= len(all) {
				return fmt.Errorf("%w: week index %d out of range", errBadRequest, i)
			}
			batches[a.Schedule] = append(batches[a.Schedule], coverage.BulkItem{Person: a.Person, WeekStart: all[i], Project: a.Project})
		}
	}

	for i, items := range batches {
		if len(items) == 0 {
			continue
		}
		if err := store.BulkSetAssignments(ctx, coverage.BulkSetRequest{ScheduleID: schedules[i].ID, Items: items}); err != nil {
			return fmt.Errorf("schedule %q assignments: %w", schedules[i].Name, err)
		}
	}
	return nil
}
