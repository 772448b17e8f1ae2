/*
Package progress converts "time since a start date" plus a configured limit
into a user-facing status.

PURPOSE:
  Two screens ask the same question with different limit tables:
    - Level tenure:      how long has this person been at their job level?
    - Cycle eligibility: how long until this person is due a performance cycle?
  Both call Compute; only the limit value differs. The caller picks the table.

DERIVATION:
  start unknown          -> elapsed, remaining unknown; ratio 0; band unknown
  limit == 0 (no limit)  -> elapsed known; remaining unknown; ratio 0; band unknown
  otherwise              -> remaining = limit - elapsed
                            ratio     = clamp(elapsed / limit, 0, 1)
                            band      = over    if remaining < 0
                                        warning if 0 <= remaining <= 12
                                        ok      if remaining > 12

  remaining == 0 is reported as AtLimit so a caller can label it separately
  while still coloring it with the warning band.

SEE ALSO:
  - limits.go: LimitTable, LevelLimit, LimitSource
  - tracker.go: evaluating a roster against both tables
  - calendar.MonthsElapsed: the month arithmetic
*/
package progress

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
)

// WarningWindowMonths is the remaining-months threshold at or below which a
// result enters the warning band.
const WarningWindowMonths = 12

// =============================================================================
// BAND
// =============================================================================

// Band is a coarse status classification for coloring.
type Band string

const (
	BandUnknown Band = "unknown"
	BandOK      Band = "ok"
	BandWarning Band = "warning"
	BandOver    Band = "over"
)

// =============================================================================
// RESULT
// =============================================================================

// Result is a derived progress value. It is never persisted.
// Elapsed and Remaining are nil when unknown.
type Result struct {
	Elapsed   *int            `json:"elapsed_months"`
	Remaining *int            `json:"remaining_months"`
	Limit     int             `json:"limit_months"`
	Ratio     decimal.Decimal `json:"ratio"`
	Band      Band            `json:"band"`
}

// AtLimit reports the remaining == 0 case.
func (r Result) AtLimit() bool {
	return r.Remaining != nil && *r.Remaining == 0
}

// HasLimit is false when no limit was configured for the level.
func (r Result) HasLimit() bool {
	return r.Limit > 0
}

// Label renders the result the way the roster badges do:
// "3 mo over", "At limit", "7 mo left", "No limit", or "Unknown".
func (r Result) Label() string {
	switch {
	case r.Elapsed == nil:
		return "Unknown"
	case r.Remaining == nil:
		return "No limit"
	case *r.Remaining < 0:
		return fmt.Sprintf("%d mo over", -*r.Remaining)
	case *r.Remaining == 0:
		return "At limit"
	default:
		return fmt.Sprintf("%d mo left", *r.Remaining)
	}
}

// Compute derives a Result for start (zero Date = unknown) against
// limitMonths (0 = no limit) as of the given date.
//
// A negative limit is treated as no limit; LimitTable rejects them on write.
func Compute(start calendar.Date, limitMonths int, asOf calendar.Date) Result {
	r := Result{Limit: limitMonths, Ratio: decimal.Zero, Band: BandUnknown}
	if start.IsZero() {
		return r
	}

	elapsed := calendar.MonthsElapsed(start, asOf)
	r.Elapsed = &elapsed
	if limitMonths <= 0 {
		r.Limit = 0
		return r
	}

	remaining := limitMonths - elapsed
	r.Remaining = &remaining
	r.Ratio = clampRatio(decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(limitMonths))))
	r.Band = bandFor(remaining)
	return r
}

func bandFor(remaining int) Band {
	switch {
	case remaining < 0:
		return BandOver
	case remaining > WarningWindowMonths:
		return BandOK
	default:
		return BandWarning
	}
}

var one = decimal.NewFromInt(1)

func clampRatio(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d.Round(4)
}

// =============================================================================
// MODEL - Compute bound to a clock
// =============================================================================

// Model evaluates progress against "today". The clock is injectable for tests.
type Model struct {
	now func() calendar.Date
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides the source of "today".
func WithClock(now func() calendar.Date) Option {
	return func(m *Model) { m.now = now }
}

// NewModel returns a Model using calendar.Today unless overridden.
func NewModel(opts ...Option) *Model {
	m := &Model{now: calendar.Today}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Progress is Compute(start, limitMonths, today).
func (m *Model) Progress(start calendar.Date, limitMonths int) Result {
	return Compute(start, limitMonths, m.now())
}

// Today exposes the model's clock.
func (m *Model) Today() calendar.Date {
	return m.now()
}
