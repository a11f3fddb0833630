package transcription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/component"
)

type fakeBackend struct {
	loads     atomic.Int32
	loadDelay time.Duration
	failFirst int32
	handle    *fakeHandle
}

func (b *fakeBackend) Name() string                     { return "fake" }
func (b *fakeBackend) IsAvailable(context.Context) bool { return true }

func (b *fakeBackend) Load(ctx context.Context, _ ModelSpec) (Handle, error) {
	n := b.loads.Add(1)
	time.Sleep(b.loadDelay)
	if n <= b.failFirst {
		return nil, errors.New("CUDA out of memory")
	}
	return b.handle, nil
}

type fakeHandle struct {
	loadErr    error
	err        error
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	delay      time.Duration
	lastLang   string
	mu         sync.Mutex
	transcribe int
}

func (h *fakeHandle) LoadAudio(_ context.Context, path string) (*audio.Waveform, error) {
	if h.loadErr != nil {
		return nil, h.loadErr
	}
	return &audio.Waveform{Path: path, SampleRate: 16000, Channels: 1, BitDepth: 16}, nil
}

func (h *fakeHandle) Transcribe(_ context.Context, _ *audio.Waveform, language string) (*Result, error) {
	n := h.inFlight.Add(1)
	defer h.inFlight.Add(-1)
	for {
		m := h.maxSeen.Load()
		if n <= m || h.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(h.delay)

	h.mu.Lock()
	h.lastLang = language
	h.transcribe++
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	return &Result{Text: " hi", Segments: []Segment{{Words: []Word{{Text: " hi", Start: 0, End: 0.5}}}}}, nil
}

func TestModelEnsureLoadsOnce(t *testing.T) {
	b := &fakeBackend{handle: &fakeHandle{}, loadDelay: 50 * time.Millisecond}
	m := NewModel(Config{Backend: "fake"}, b)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Ensure(context.Background()); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := b.loads.Load(); got != 1 {
		t.Fatalf("expected exactly one load, got %d", got)
	}
	if !m.IsReady() {
		t.Fatal("expected model to be ready")
	}
	if err := m.Ensure(context.Background()); err != nil || b.loads.Load() != 1 {
		t.Fatal("Ensure after success must be a no-op")
	}
}

func TestModelEnsureRetriesAfterFailure(t *testing.T) {
	b := &fakeBackend{handle: &fakeHandle{}, failFirst: 1}
	m := NewModel(Config{Backend: "fake"}, b)

	err := m.Ensure(context.Background())
	if err == nil || err.Error() != "CUDA out of memory" {
		t.Fatalf("expected backend error unchanged, got %v", err)
	}
	if m.IsReady() {
		t.Fatal("model must not be ready after a failed load")
	}
	if h := m.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after failed load, got %s", h.Status)
	}

	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if h := m.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Status)
	}
}

func TestModelEnsureWaiterHonorsContext(t *testing.T) {
	b := &fakeBackend{handle: &fakeHandle{}, loadDelay: 500 * time.Millisecond}
	m := NewModel(Config{Backend: "fake"}, b)

	loaded := make(chan error, 1)
	go func() { loaded <- m.Ensure(context.Background()) }()
	for b.loads.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := m.Ensure(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if waited := time.Since(start); waited > 400*time.Millisecond {
		t.Errorf("waiter blocked for the whole load: %v", waited)
	}
	if err := <-loaded; err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if b.loads.Load() != 1 {
		t.Errorf("expected one load, got %d", b.loads.Load())
	}
}

func TestModelTranscribeRequiresLoad(t *testing.T) {
	m := NewModel(Config{Backend: "fake"}, &fakeBackend{handle: &fakeHandle{}})
	if _, err := m.Transcribe(context.Background(), "x.wav", ""); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if h := m.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded before load, got %s", h.Status)
	}
}

func TestModelTranscribeAfterReleaseIsNotLoaded(t *testing.T) {
	m := NewModel(Config{Backend: "fake"}, &fakeBackend{handle: &fakeHandle{}})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	// The handle is gone while the guard still reads ready, as during Stop.
	if err := m.release(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Transcribe(context.Background(), "x.wav", ""); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestModelTranscribeDuringStop(t *testing.T) {
	m := NewModel(Config{Backend: "fake", MaxConcurrentInference: 4}, &fakeBackend{handle: &fakeHandle{}})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := m.Transcribe(context.Background(), "x.wav", ""); err != nil && !errors.Is(err, ErrNotLoaded) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	wg.Wait()
}

func TestModelTranscribeUsesConfiguredLanguage(t *testing.T) {
	h := &fakeHandle{}
	m := NewModel(Config{Backend: "fake", Language: "de"}, &fakeBackend{handle: h})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := m.Transcribe(context.Background(), "x.wav", "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if h.lastLang != "de" {
		t.Errorf("expected configured language, got %q", h.lastLang)
	}
	if res.WordCount() != 1 {
		t.Errorf("expected 1 word, got %d", res.WordCount())
	}
}

func TestModelSerializesInference(t *testing.T) {
	h := &fakeHandle{delay: 20 * time.Millisecond}
	m := NewModel(Config{Backend: "fake"}, &fakeBackend{handle: h})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Transcribe(context.Background(), "x.wav", "en"); err != nil {
				t.Errorf("Transcribe: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := h.maxSeen.Load(); got != 1 {
		t.Errorf("expected serialized inference, saw %d concurrent calls", got)
	}
	if h.transcribe != 5 {
		t.Errorf("expected 5 calls, got %d", h.transcribe)
	}
}

func TestModelConcurrentInferenceLimit(t *testing.T) {
	h := &fakeHandle{delay: 30 * time.Millisecond}
	m := NewModel(Config{Backend: "fake", MaxConcurrentInference: 2}, &fakeBackend{handle: h})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Transcribe(context.Background(), "x.wav", "en")
		}()
	}
	wg.Wait()
	if got := h.maxSeen.Load(); got > 2 {
		t.Errorf("expected at most 2 concurrent calls, saw %d", got)
	}
}

func TestModelWrapsEngineFailures(t *testing.T) {
	t.Run("audio load", func(t *testing.T) {
		h := &fakeHandle{loadErr: errors.New("file is not a wav")}
		m := NewModel(Config{Backend: "fake"}, &fakeBackend{handle: h})
		_ = m.Ensure(context.Background())

		_, err := m.Transcribe(context.Background(), "x.wav", "en")
		if !IsAudioLoadFailure(err) {
			t.Fatalf("expected audio load failure, got %v", err)
		}
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Message != "file is not a wav" {
			t.Errorf("expected engine message preserved, got %v", err)
		}
	})

	t.Run("inference", func(t *testing.T) {
		h := &fakeHandle{err: errors.New("cuDNN error")}
		m := NewModel(Config{Backend: "fake"}, &fakeBackend{handle: h})
		_ = m.Ensure(context.Background())

		_, err := m.Transcribe(context.Background(), "x.wav", "en")
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Op != OpTranscribe {
			t.Fatalf("expected transcribe EngineError, got %v", err)
		}
		if IsAudioLoadFailure(err) {
			t.Error("model failure must not be flagged as audio load")
		}
	})
}

func TestModelStartPreload(t *testing.T) {
	b := &fakeBackend{handle: &fakeHandle{}}
	m := NewModel(Config{Backend: "fake", Preload: true}, b)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !m.IsReady() {
		t.Fatal("expected preload")
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.IsReady() {
		t.Fatal("expected stop to release the model")
	}
}

func TestModelStartPreloadFailureIsNotFatal(t *testing.T) {
	b := &fakeBackend{handle: &fakeHandle{}, failFirst: 1}
	m := NewModel(Config{Backend: "fake", Preload: true}, b)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("preload failure should not stop startup: %v", err)
	}
	if m.IsReady() {
		t.Fatal("model should not be ready")
	}
}

func TestIsAudioLoadFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("load audio"), false},
		{"flagged", &EngineError{Op: OpTranscribe, AudioLoad: true}, true},
		{"load op", &EngineError{Op: OpLoadAudio, Message: "x"}, true},
		{"message evidence", &EngineError{Op: OpTranscribe, Message: "Failed to load audio: ffmpeg error"}, true},
		{"model error", &EngineError{Op: OpTranscribe, Message: "CUDA error"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAudioLoadFailure(tc.err); got != tc.want {
				t.Errorf("IsAudioLoadFailure() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Language != "en" || cfg.MaxConcurrentInference != 1 || cfg.Model != "large-v2" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
