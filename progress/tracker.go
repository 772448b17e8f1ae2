package progress

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/warp/coverage-engine/calendar"
)

// =============================================================================
// TRACKER - Roster evaluation against both limit tables
// =============================================================================

// Member is the slice of a person the tracker needs.
type Member struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	JobLevel       string        `json:"job_level"`
	LevelStartDate calendar.Date `json:"level_start_date"`
	CycleStartDate calendar.Date `json:"cycle_start_date"`
}

// Entry is a member with both progress results.
type Entry struct {
	Member Member `json:"member"`
	Tenure Result `json:"tenure"`
	Cycle  Result `json:"cycle"`
}

// Tracker evaluates members against the tenure and cycle tables of a LimitSource.
type Tracker struct {
	model  *Model
	source LimitSource
}

// NewTracker binds a model to a limit source.
func NewTracker(model *Model, source LimitSource) *Tracker {
	if model == nil {
		model = NewModel()
	}
	return &Tracker{model: model, source: source}
}

// Tables loads the tenure and cycle tables concurrently.
func (t *Tracker) Tables(ctx context.Context) (tenure, cycle LimitTable, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenure, err = LoadTable(gctx, t.source, KindTenure)
		return err
	})
	g.Go(func() error {
		var err error
		cycle, err = LoadTable(gctx, t.source, KindCycle)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tenure, cycle, nil
}

// Evaluate returns one Entry per member, ordered by job level then name.
func (t *Tracker) Evaluate(ctx context.Context, members []Member) ([]Entry, error) {
	tenure, cycle, err := t.Tables(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, Entry{
			Member: m,
			Tenure: t.model.Progress(m.LevelStartDate, tenure.Limit(m.JobLevel)),
			Cycle:  t.model.Progress(m.CycleStartDate, cycle.Limit(m.JobLevel)),
		})
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if ra, rb := LevelRank(a.Member.JobLevel), LevelRank(b.Member.JobLevel); ra != rb {
			return ra - rb
		}
		return strings.Compare(strings.ToLower(a.Member.Name), strings.ToLower(b.Member.Name))
	})
	return entries, nil
}
