package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches any *TimeoutError.
var ErrTimeout = errors.New("audio: transcoder timed out")

// NormalizationError reports a transcoder that exited non-zero or could
// not be started. Diagnostics is its standard error, unmodified.
type NormalizationError struct {
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("audio: transcoder failed with exit code %d", e.ExitCode)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// TimeoutError reports a transcoder killed after exceeding its budget.
type TimeoutError struct {
	Budget      time.Duration
	Diagnostics string
	Err         error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("audio: transcoder timed out after %s", e.Budget)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// IntegrityError reports transcoder output that is missing, empty or not
// canonical, regardless of the transcoder's exit status.
type IntegrityError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	return "audio: " + e.Reason
}

func (e *IntegrityError) Unwrap() error { return e.Err }
