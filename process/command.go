package process

import (
	"io"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
	// Timeout is the run's own budget. Only its expiry is reported as
	// ErrTimeout; a deadline on the caller's context is a cancellation.
	Timeout time.Duration
	// MaxOutput caps each captured stream; only the tail is kept.
	// Zero means DefaultMaxOutput.
	MaxOutput int
}

// DefaultMaxOutput is the per-stream capture limit.
const DefaultMaxOutput = 256 << 10
