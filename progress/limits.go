package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxLimitMonths bounds a configured limit; the settings slider stops at 60.
const MaxLimitMonths = 60

// ErrInvalidLimit is returned for limits outside 0..MaxLimitMonths or an empty level.
var ErrInvalidLimit = errors.New("invalid level limit")

// =============================================================================
// LIMIT KINDS & LEVELS
// =============================================================================

// LimitKind selects which limit table a caller wants.
type LimitKind string

const (
	// KindTenure limits time spent at a job level.
	KindTenure LimitKind = "tenure"
	// KindCycle limits time between performance cycles.
	KindCycle LimitKind = "cycle"
)

// Valid reports whether k names a known table.
func (k LimitKind) Valid() bool {
	return k == KindTenure || k == KindCycle
}

// JobLevels is the display order of the product's job levels.
var JobLevels = []string{"Junior", "Mid", "Senior", "Staff", "Principal"}

// LevelRank returns a level's position in JobLevels, or len(JobLevels) for
// unknown levels so they sort last.
func LevelRank(level string) int {
	for i, l := range JobLevels {
		if strings.EqualFold(l, level) {
			return i
		}
	}
	return len(JobLevels)
}

// CanonicalLevel maps a known level to its JobLevels spelling ("senior" to
// "Senior"). Other levels are only trimmed.
func CanonicalLevel(level string) string {
	level = strings.TrimSpace(level)
	if i := LevelRank(level); i < len(JobLevels) {
		return JobLevels[i]
	}
	return level
}

// LevelLimit is one row of a limit table. 0 months means no limit.
type LevelLimit struct {
	JobLevel    string `json:"job_level"`
	LimitMonths int    `json:"limit_months"`
}

// Validate checks the level name and month range.
func (l LevelLimit) Validate() error {
	if strings.TrimSpace(l.JobLevel) == "" {
		return fmt.Errorf("%w: job level is required", ErrInvalidLimit)
	}
	if l.LimitMonths < 0 || l.LimitMonths > MaxLimitMonths {
		return fmt.Errorf("%w: %s limit %d outside 0..%d", ErrInvalidLimit, l.JobLevel, l.LimitMonths, MaxLimitMonths)
	}
	return nil
}

// LimitSource is the read-only tenant configuration consumed by the tracker.
// Implementations: store/sqlite.Store, api.Client.
type LimitSource interface {
	LevelLimits(ctx context.Context, kind LimitKind) ([]LevelLimit, error)
}

// =============================================================================
// LIMIT TABLE
// =============================================================================

// LimitTable maps job level to limit months. Missing levels have no limit.
// Keys are stored by CanonicalLevel, so known levels match in any case.
type LimitTable map[string]int

// NewLimitTable builds a table from rows, dropping zero limits.
func NewLimitTable(rows []LevelLimit) LimitTable {
	t := make(LimitTable, len(rows))
	for _, r := range rows {
		if r.LimitMonths > 0 {
			t[CanonicalLevel(r.JobLevel)] = r.LimitMonths
		}
	}
	return t
}

// Limit returns the limit for level, 0 if none is configured.
func (t LimitTable) Limit(level string) int {
	return t[CanonicalLevel(level)]
}

// Set stores a validated limit; 0 clears it.
func (t LimitTable) Set(level string, months int) error {
	if err := (LevelLimit{JobLevel: level, LimitMonths: months}).Validate(); err != nil {
		return err
	}
	level = CanonicalLevel(level)
	if months == 0 {
		delete(t, level)
		return nil
	}
	t[level] = months
	return nil
}

// Rows lists every known job level in display order, with 0 for levels
// without a limit, followed by any extra configured levels sorted by name.
func (t LimitTable) Rows() []LevelLimit {
	rows := make([]LevelLimit, 0, len(JobLevels))
	for _, level := range JobLevels {
		rows = append(rows, LevelLimit{JobLevel: level, LimitMonths: t[level]})
	}
	var extra []string
	for level := range t {
		if LevelRank(level) == len(JobLevels) {
			extra = append(extra, level)
		}
	}
	slices.Sort(extra)
	for _, level := range extra {
		rows = append(rows, LevelLimit{JobLevel: level, LimitMonths: t[level]})
	}
	return rows
}

// LoadTable fetches one table from src.
func LoadTable(ctx context.Context, src LimitSource, kind LimitKind) (LimitTable, error) {
	rows, err := src.LevelLimits(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s limits: %w", kind, err)
	}
	return NewLimitTable(rows), nil
}
