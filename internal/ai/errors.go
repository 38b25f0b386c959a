package ai

import (
	"errors"
	"fmt"
)

// ErrNotConfigured signals that no model credentials are present. Callers
// should switch to the keyword classifier instead of retrying.
var ErrNotConfigured = errors.New("model caller not configured")

// Recovery failure reasons.
const (
	ReasonNoJSON      = "no_json_found"
	ReasonUnparseable = "unparseable"
)

// rawKeepLimit bounds how much raw model output is retained for diagnostics.
const rawKeepLimit = 2000

// TransportError wraps a network or provider failure. Retryable.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RecoveryError reports that a raw model response could not be salvaged
// into JSON. Retryable up to the attempt budget. Raw is truncated.
type RecoveryError struct {
	Reason string
	Raw    string
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("response recovery: %s", e.Reason)
}

// ValidationError reports a schema violation in a successfully parsed
// result. Not retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ExhaustedError is the terminal failure once the attempt budget is spent.
// LastRaw carries the final raw response, truncated, for diagnostics.
type ExhaustedError struct {
	Attempts int
	LastRaw  string
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("classification failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	var te *TransportError
	var re *RecoveryError
	return errors.As(err, &te) || errors.As(err, &re)
}

func truncateRaw(raw string) string {
	if len(raw) > rawKeepLimit {
		return raw[:rawKeepLimit]
	}
	return raw
}
