package component

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Lazy runs an initializer at most once successfully. Initialize uses
// double-checked locking: the fast path is a lock-free flag read, the slow
// path holds a one-slot semaphore for the whole initializer so late arrivals
// wait until it finishes or their own context ends. After a failure the next
// caller retries.
type Lazy struct {
	name        string
	sem         chan struct{}
	ready       atomic.Bool
	lastError   atomic.Pointer[error]
	initializer func(ctx context.Context) error
	closer      func(ctx context.Context) error
}

// NewLazy creates a lazy guard around initializer.
func NewLazy(name string, initializer func(context.Context) error) *Lazy {
	return &Lazy{name: name, sem: make(chan struct{}, 1), initializer: initializer}
}

// WithCloser sets the function Close runs after a successful initialization.
func (l *Lazy) WithCloser(fn func(context.Context) error) *Lazy {
	l.closer = fn
	return l
}

// Name returns the guard name.
func (l *Lazy) Name() string { return l.name }

// Initialize runs the initializer unless a previous call succeeded.
func (l *Lazy) Initialize(ctx context.Context) error {
	if l.ready.Load() {
		return nil
	}

	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	if l.ready.Load() {
		return nil
	}
	if l.initializer == nil {
		return fmt.Errorf("no initializer for component: %s", l.name)
	}

	if err := l.initializer(ctx); err != nil {
		l.lastError.Store(&err)
		return fmt.Errorf("failed to initialize %s: %w", l.name, err)
	}
	l.lastError.Store(nil)
	l.ready.Store(true)
	return nil
}

// acquire waits for the guard. A caller whose ctx ends first gets ctx's
// error and leaves the in-flight initializer running.
func (l *Lazy) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lazy) release() { <-l.sem }

// IsInitialized reports whether initialization has succeeded. It never
// blocks on an in-progress initialization.
func (l *Lazy) IsInitialized() bool {
	return l.ready.Load()
}

// LastError returns the most recent initialization error, or nil.
func (l *Lazy) LastError() error {
	if p := l.lastError.Load(); p != nil {
		return *p
	}
	return nil
}

// Close runs the closer and resets the guard so the next Initialize runs the
// initializer again.
func (l *Lazy) Close(ctx context.Context) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	if !l.ready.Load() {
		return nil
	}
	l.ready.Store(false)
	if l.closer != nil {
		return l.closer(ctx)
	}
	return nil
}
