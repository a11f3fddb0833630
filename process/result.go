package process

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when Command.Timeout killed the process.
	ErrTimeout = errors.New("process: timed out")
	// ErrCanceled is returned when the caller's context ended the run,
	// whether by cancel or by its own deadline.
	ErrCanceled = errors.New("process: canceled")

	errBudget = errors.New("process: command timeout exceeded")
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed or never started.
	ExitCode int
	Duration time.Duration
	// Truncated reports whether either stream exceeded MaxOutput.
	Truncated bool
}
