package coverage

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStaleRequest marks a hydration result superseded by a newer request.
	// It is not a failure: the caller simply drops the result.
	ErrStaleRequest = errors.New("stale request discarded")

	// ErrRemoteUnavailable is returned when the sync adapter fails.
	// Always recoverable: the grid keeps its last good state.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrUnknownTeam is returned by team operations for a team not in the roster.
	ErrUnknownTeam = errors.New("unknown team")

	// ErrEmptyBatch is returned by a bulk set with no people.
	ErrEmptyBatch = errors.New("empty batch")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RemoteError wraps a sync adapter failure with the operation that hit it.
type RemoteError struct {
	Op         string
	RolledBack bool
	Err        error
}

func (e *RemoteError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s: %s (local change rolled back): %v", e.Op, ErrRemoteUnavailable, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrRemoteUnavailable, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteUnavailable, e.Err}
}

func remoteErr(op string, rolledBack bool, err error) error {
	return &RemoteError{Op: op, RolledBack: rolledBack, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecoverable returns true for failures the caller should surface and move past.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsStale returns true for superseded hydrations.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleRequest)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownTeam) ||
		errors.Is(err, ErrEmptyBatch)
}
