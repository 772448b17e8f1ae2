package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/coverage-engine/calendar"
	"github.com/warp/coverage-engine/coverage"
	"github.com/warp/coverage-engine/progress"
)

// =============================================================================
// SCHEDULES
// =============================================================================

// CreateSchedule inserts a schedule and returns it with its new ID.
func (s *Store) CreateSchedule(ctx context.Context, sch coverage.Schedule) (coverage.Schedule, error) {
	if err := sch.CalendarQuarter().Validate(); err != nil {
		return coverage.Schedule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO schedules (name, year, quarter, created_at) VALUES (?, ?, ?, ?)",
		sch.Name, sch.Year, sch.Quarter, now(),
	)
	if err != nil {
		return coverage.Schedule{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return coverage.Schedule{}, err
	}
	sch.ID = coverage.ScheduleID(id)
	return sch, nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id coverage.ScheduleID) (coverage.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSchedule(ctx, s.db, id)
}

func getSchedule(ctx context.Context, q querier, id coverage.ScheduleID) (coverage.Schedule, error) {
	var sch coverage.Schedule
	err := q.QueryRowContext(ctx,
		"SELECT id, name, year, quarter FROM schedules WHERE id = ?", id,
	).Scan(&sch.ID, &sch.Name, &sch.Year, &sch.Quarter)
	if errors.Is(err, sql.ErrNoRows) {
		return coverage.Schedule{}, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return sch, err
}

// ListSchedules returns all schedules, newest quarter first.
func (s *Store) ListSchedules(ctx context.Context) ([]coverage.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, year, quarter FROM schedules ORDER BY year DESC, quarter DESC, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []coverage.Schedule
	for rows.Next() {
		var sch coverage.Schedule
		if err := rows.Scan(&sch.ID, &sch.Name, &sch.Year, &sch.Quarter); err != nil {
			return nil, err
		}
		schedules = append(schedules, sch)
	}
	return schedules, rows.Err()
}

// DeleteSchedule removes a schedule and its assignments.
func (s *Store) DeleteSchedule(ctx context.Context, id coverage.ScheduleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return nil
}

// =============================================================================
// PEOPLE
// =============================================================================

// PersonRecord is a stored person with the dates progress tracking needs.
type PersonRecord struct {
	coverage.Person
	LevelStartDate calendar.Date `json:"level_start_date"`
	CycleStartDate calendar.Date `json:"cycle_start_date"`
}

// Member converts the record for progress tracking.
func (p PersonRecord) Member() progress.Member {
	return progress.Member{
		ID:             int64(p.ID),
		Name:           p.Name,
		JobLevel:       p.JobLevel,
		LevelStartDate: p.LevelStartDate,
		CycleStartDate: p.CycleStartDate,
	}
}

// SavePerson upserts a person.
func (s *Store) SavePerson(ctx context.Context, p PersonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO people (id, name, job_level, level_start_date, cycle_start_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			job_level = excluded.job_level,
			level_start_date = excluded.level_start_date,
			cycle_start_date = excluded.cycle_start_date
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.JobLevel, p.LevelStartDate, p.CycleStartDate)
	return err
}

// ListPeople returns all people ordered by name.
func (s *Store) ListPeople(ctx context.Context) ([]PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, job_level, level_start_date, cycle_start_date FROM people ORDER BY name COLLATE NOCASE, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []PersonRecord
	for rows.Next() {
		var p PersonRecord
		if err := rows.Scan(&p.ID, &p.Name, &p.JobLevel, &p.LevelStartDate, &p.CycleStartDate); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// =============================================================================
// TEAMS
// =============================================================================

// SaveTeam upserts a team and replaces its member list.
func (s *Store) SaveTeam(ctx context.Context, t coverage.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(ctx, func(q querier) error {
		var lead any
		if t.LeadID != 0 {
			lead = t.LeadID
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO teams (id, name, lead_id) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, lead_id = excluded.lead_id`,
			t.ID, t.Name, lead,
		)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM team_members WHERE team_id = ?", t.ID); err != nil {
			return err
		}
		for _, m := range t.Members {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO team_members (team_id, person_id) VALUES (?, ?)", t.ID, m.ID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if isForeignKeyError(err) {
		return fmt.Errorf("team %d: %w", t.ID, ErrInvalidReference)
	}
	return err
}

func listTeams(ctx context.Context, q querier) ([]coverage.Team, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, COALESCE(t.lead_id, 0), p.id, p.name, p.job_level
		FROM teams t
		LEFT JOIN team_members tm ON tm.team_id = t.id
		LEFT JOIN people p ON p.id = tm.person_id
		ORDER BY t.id, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []coverage.Team
	for rows.Next() {
		var (
			id       coverage.TeamID
			name     string
			lead     coverage.PersonID
			memberID sql.NullInt64
			member   sql.NullString
			level    sql.NullString
		)
		if err := rows.Scan(&id, &name, &lead, &memberID, &member, &level); err != nil {
			return nil, err
		}
		if len(teams) == 0 || teams[len(teams)-1].ID != id {
			teams = append(teams, coverage.Team{ID: id, Name: name, LeadID: lead})
		}
		if memberID.Valid {
			t := &teams[len(teams)-1]
			t.Members = append(t.Members, coverage.Person{
				ID:       coverage.PersonID(memberID.Int64),
				Name:     member.String,
				JobLevel: level.String,
			})
		}
	}
	return teams, rows.Err()
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject upserts a catalog entry.
func (s *Store) SaveProject(ctx context.Context, p coverage.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO projects (id, name, color, project_type, is_system)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			project_type = excluded.project_type,
			is_system = excluded.is_system
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Color, string(p.Type), p.IsSystem)
	return err
}

func listProjects(ctx context.Context, q querier) ([]coverage.Project, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, color, project_type, is_system FROM projects ORDER BY name COLLATE NOCASE, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []coverage.Project
	for rows.Next() {
		var p coverage.Project
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &typ, &p.IsSystem); err != nil {
			return nil, err
		}
		p.Type = coverage.ProjectType(typ)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// =============================================================================
// DIRECTORY (coverage.Directory)
// =============================================================================

// Load returns a schedule's assignment rows within q.Range plus the full
// roster and catalog.
func (s *Store) Load(ctx context.Context, q coverage.DirectoryQuery) (coverage.Snapshot, error) {
	if err := q.Range.Validate(); err != nil {
		return coverage.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := getSchedule(ctx, s.db, q.ScheduleID); err != nil {
		return coverage.Snapshot{}, err
	}

	snap := coverage.Snapshot{Range: q.Range}
	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, project_id, week_start
		FROM schedule_assignments
		WHERE schedule_id = ? AND week_start >= ? AND week_start <= ?
		ORDER BY week_start, person_id`,
		q.ScheduleID, q.Range.Start, q.Range.End,
	)
	if err != nil {
		return coverage.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a coverage.Assignment
		if err := rows.Scan(&a.Person, &a.Project, &a.WeekStart); err != nil {
			return coverage.Snapshot{}, err
		}
		snap.Assignments = append(snap.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return coverage.Snapshot{}, err
	}

	if snap.Teams, err = listTeams(ctx, s.db); err != nil {
		return coverage.Snapshot{}, err
	}
	if snap.Projects, err = listProjects(ctx, s.db); err != nil {
		return coverage.Snapshot{}, err
	}
	return snap, nil
}
