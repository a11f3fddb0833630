package component

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockComponent{name: "server"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&mockComponent{name: "server"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "kafka"}
	_ = r.Register(c)
	if r.Get("kafka") != c {
		t.Error("expected registered component")
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown component")
	}
}

func TestStartStopOrder(t *testing.T) {
	var started, stopped []string
	r := NewRegistry()
	for _, name := range []string{"model", "server", "kafka"} {
		_ = r.Register(&mockComponent{name: name, startOrder: &started, stopOrder: &stopped})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if fmt.Sprint(started) != "[model server kafka]" {
		t.Errorf("unexpected start order %v", started)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if fmt.Sprint(stopped) != "[kafka server model]" {
		t.Errorf("unexpected stop order %v", stopped)
	}
}

func TestStartAllFailureStopsStarted(t *testing.T) {
	var started, stopped []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "model", startOrder: &started, stopOrder: &stopped})
	_ = r.Register(&mockComponent{name: "server", startErr: errors.New("bind: address in use"), startOrder: &started, stopOrder: &stopped})
	_ = r.Register(&mockComponent{name: "kafka", startOrder: &started, stopOrder: &stopped})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to start server") {
		t.Fatalf("expected start failure, got %v", err)
	}
	if fmt.Sprint(started) != "[model server]" {
		t.Errorf("kafka must not start after failure, got %v", started)
	}
	if fmt.Sprint(stopped) != "[model]" {
		t.Errorf("expected only model stopped, got %v", stopped)
	}
}

func TestStopAllCollectsErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", stopErr: errors.New("a failed")})
	_ = r.Register(&mockComponent{name: "b", stopErr: errors.New("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected stop errors")
	}
	for _, want := range []string{"a failed", "b failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Errorf("second StopAll should be a no-op, got %v", err)
	}
}

func TestHealthAllAndOverall(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "model", health: Health{Name: "model", Status: StatusHealthy}})
	_ = r.Register(&mockComponent{name: "kafka", health: Health{Name: "kafka", Status: StatusDegraded}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if Overall(results) != StatusDegraded {
		t.Errorf("expected degraded, got %s", Overall(results))
	}
	results = append(results, Health{Name: "server", Status: StatusUnhealthy})
	if Overall(results) != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", Overall(results))
	}
	if Overall(nil) != StatusHealthy {
		t.Error("no components means healthy")
	}
}

func TestLazyInitializesOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLazy("model", func(ctx context.Context) error {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected exactly one initialization, got %d", calls.Load())
	}
	if !l.IsInitialized() {
		t.Error("expected initialized")
	}
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	attempts := 0
	l := NewLazy("model", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("weights not found")
		}
		return nil
	})

	err := l.Initialize(context.Background())
	if err == nil || !strings.Contains(err.Error(), "weights not found") {
		t.Fatalf("expected first failure, got %v", err)
	}
	if l.IsInitialized() {
		t.Fatal("must not be initialized after failure")
	}
	if l.LastError() == nil {
		t.Fatal("expected LastError to be recorded")
	}
	if err := l.Initialize(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if l.LastError() != nil {
		t.Error("LastError should clear after success")
	}
	_ = l.Initialize(context.Background())
	if attempts != 2 {
		t.Errorf("expected no calls after success, got %d attempts", attempts)
	}
}

func TestLazyIsInitializedDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	l := NewLazy("model", func(ctx context.Context) error {
		<-release
		return nil
	})
	go func() { _ = l.Initialize(context.Background()) }()

	done := make(chan bool)
	go func() { done <- l.IsInitialized() }()
	select {
	case got := <-done:
		if got {
			t.Error("expected not initialized while loading")
		}
	case <-time.After(time.Second):
		t.Fatal("IsInitialized blocked on in-progress initialization")
	}
	close(release)
}

func TestLazyWaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	l := NewLazy("model", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	loaded := make(chan error, 1)
	go func() { loaded <- l.Initialize(context.Background()) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.Initialize(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("waiter ignored its context for %v", waited)
	}
	if l.LastError() != nil {
		t.Error("an abandoned wait must not be recorded as an init failure")
	}

	close(release)
	if err := <-loaded; err != nil {
		t.Fatalf("in-flight initialization: %v", err)
	}
	if !l.IsInitialized() {
		t.Error("expected initialized after the first caller finished")
	}
}

func TestLazyClose(t *testing.T) {
	closed := false
	l := NewLazy("model", func(context.Context) error { return nil }).
		WithCloser(func(context.Context) error { closed = true; return nil })

	if err := l.Close(context.Background()); err != nil || closed {
		t.Fatal("closing an uninitialized guard should be a no-op")
	}
	_ = l.Initialize(context.Background())
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed || l.IsInitialized() {
		t.Error("expected closer run and guard reset")
	}
}

func TestLazyNoInitializer(t *testing.T) {
	if err := NewLazy("empty", nil).Initialize(context.Background()); err == nil {
		t.Fatal("expected error without initializer")
	}
}
