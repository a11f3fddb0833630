package transcription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/whisperjob/component"
	"github.com/kbukum/whisperjob/logger"
	"github.com/kbukum/whisperjob/observability"
	"github.com/kbukum/whisperjob/provider"
	"github.com/kbukum/whisperjob/resilience"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config is the engine section of the service config.
type Config struct {
	// Backend selects a registered backend factory.
	Backend string `yaml:"backend" mapstructure:"backend" validate:"required"`
	// Model is the model name passed to the backend.
	Model       string `yaml:"model" mapstructure:"model" validate:"required"`
	Device      string `yaml:"device" mapstructure:"device"`
	ComputeType string `yaml:"compute_type" mapstructure:"compute_type"`
	// Language is the fixed language hint used for every job.
	Language string `yaml:"language" mapstructure:"language" validate:"required"`
	// MaxConcurrentInference bounds simultaneous Transcribe calls.
	MaxConcurrentInference int `yaml:"max_concurrent_inference" mapstructure:"max_concurrent_inference" validate:"gte=1"`
	// Preload loads the model when the component starts rather than on the
	// first job.
	Preload bool `yaml:"preload" mapstructure:"preload"`
	// Options is handed to the backend factory.
	Options map[string]any `yaml:"options" mapstructure:"options"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = "whisper"
	}
	if c.Model == "" {
		c.Model = "large-v2"
	}
	if c.Device == "" {
		c.Device = "cuda"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.MaxConcurrentInference <= 0 {
		c.MaxConcurrentInference = 1
	}
}

// Spec returns the model spec for the backend.
func (c *Config) Spec() ModelSpec {
	return ModelSpec{Name: c.Model, Device: c.Device, ComputeType: c.ComputeType}
}

var _ component.Component = (*Model)(nil)

// Model owns the process-wide model handle.
type Model struct {
	cfg      Config
	backend  Backend
	lazy     *component.Lazy
	bulkhead *resilience.Bulkhead
	handleMu sync.RWMutex
	handle   Handle
	metrics  *observability.Metrics
	log      *logger.Logger
}

// ModelOption customizes a Model.
type ModelOption func(*Model)

// WithMetrics records load and inference operations.
func WithMetrics(m *observability.Metrics) ModelOption {
	return func(model *Model) { model.metrics = m }
}

// WithLogger overrides the model's logger.
func WithLogger(l *logger.Logger) ModelOption {
	return func(model *Model) { model.log = l }
}

// NewModel creates an unloaded model guard around backend.
func NewModel(cfg Config, backend Backend, opts ...ModelOption) *Model {
	cfg.ApplyDefaults()
	m := &Model{
		cfg:     cfg,
		backend: backend,
		log:     logger.Get("model"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lazy = component.NewLazy("model", m.load).WithCloser(m.release)
	m.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "inference",
		MaxConcurrent: cfg.MaxConcurrentInference,
		MaxWait:       resilience.WaitForever,
		OnWait: func(_ string, waited time.Duration) {
			if waited > time.Second {
				m.log.Debug("inference slot acquired", logger.Fields("waited_ms", waited.Milliseconds()))
			}
		},
	})
	return m
}

// load runs under the Lazy guard.
func (m *Model) load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "model.load", trace.WithAttributes(
		attribute.String(observability.AttrBackend, m.backend.Name()),
		attribute.String(observability.AttrModel, m.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	m.log.Info("loading model", logger.Fields(
		logger.FieldBackend, m.backend.Name(),
		logger.FieldModel, m.cfg.Model,
		"device", m.cfg.Device,
	))

	h, err := m.backend.Load(ctx, m.cfg.Spec())
	m.record(ctx, OpLoadModel, err, time.Since(start))
	if err != nil {
		observability.SetSpanError(ctx, err)
		m.log.Error("model load failed", logger.ErrorFields(OpLoadModel, err))
		return err
	}
	m.setHandle(h)
	m.log.Info("model loaded", logger.DurationFields(OpLoadModel, time.Since(start)))
	return nil
}

func (m *Model) release(ctx context.Context) error {
	m.handleMu.Lock()
	h := m.handle
	m.handle = nil
	m.handleMu.Unlock()
	return provider.CloseIfCloseable(ctx, h)
}

func (m *Model) setHandle(h Handle) {
	m.handleMu.Lock()
	m.handle = h
	m.handleMu.Unlock()
}

func (m *Model) currentHandle() Handle {
	m.handleMu.RLock()
	defer m.handleMu.RUnlock()
	return m.handle
}

func (m *Model) record(ctx context.Context, op string, err error, d time.Duration) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		m.metrics.RecordError(ctx, op, m.backend.Name())
	}
	m.metrics.RecordOperation(ctx, m.backend.Name(), op, status, d)
}

// Ensure loads the model unless it is already loaded. Concurrent callers
// wait for the in-flight load or until their ctx ends; after a failure the
// next call tries again. The returned error is the backend's own.
func (m *Model) Ensure(ctx context.Context) error {
	if err := m.lazy.Initialize(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if cause := m.lazy.LastError(); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

// IsReady reports whether the model is loaded. It does not block.
func (m *Model) IsReady() bool { return m.lazy.IsInitialized() }

// Language returns the configured language hint.
func (m *Model) Language() string { return m.cfg.Language }

// Backend returns the backend name.
func (m *Model) Backend() string { return m.backend.Name() }

// Transcribe loads the waveform at path and runs inference while holding an
// inference slot. An empty language uses the configured hint.
func (m *Model) Transcribe(ctx context.Context, path, language string) (*Result, error) {
	if !m.IsReady() {
		return nil, ErrNotLoaded
	}
	if language == "" {
		language = m.cfg.Language
	}

	return resilience.ExecuteWithResult(ctx, m.bulkhead, func() (*Result, error) {
		start := time.Now()
		h := m.currentHandle()
		if h == nil {
			return nil, ErrNotLoaded
		}

		wf, err := h.LoadAudio(ctx, path)
		if err != nil {
			err = asEngineError(OpLoadAudio, err, true)
			m.record(ctx, OpLoadAudio, err, time.Since(start))
			return nil, err
		}

		res, err := h.Transcribe(ctx, wf, language)
		m.record(ctx, OpTranscribe, err, time.Since(start))
		if err != nil {
			return nil, asEngineError(OpTranscribe, err, false)
		}
		if res == nil {
			res = &Result{}
		}
		return res, nil
	})
}

// asEngineError keeps backend EngineErrors and context errors intact and
// wraps anything else.
func asEngineError(op string, err error, audioLoad bool) error {
	var ee *EngineError
	if errors.As(err, &ee) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &EngineError{Op: op, Message: err.Error(), AudioLoad: audioLoad, Err: err}
}

// Name implements component.Component.
func (m *Model) Name() string { return "model" }

// Start preloads the model when configured. A failed preload is logged and
// left for the first job to retry.
func (m *Model) Start(ctx context.Context) error {
	if !m.cfg.Preload {
		return nil
	}
	if err := m.Ensure(ctx); err != nil {
		m.log.Warn("model preload failed; jobs will retry the load", logger.ErrorFields(OpLoadModel, err))
	}
	return nil
}

// Stop releases the handle if the backend supports it.
func (m *Model) Stop(ctx context.Context) error {
	return m.lazy.Close(ctx)
}

// Health is healthy once loaded, degraded before the first load and
// unhealthy after a failed load.
func (m *Model) Health(_ context.Context) component.Health {
	h := component.Health{Name: m.Name(), Status: component.StatusHealthy}
	switch {
	case m.IsReady():
		h.Message = fmt.Sprintf("%s/%s loaded", m.backend.Name(), m.cfg.Model)
	case m.lazy.LastError() != nil:
		h.Status = component.StatusUnhealthy
		h.Message = m.lazy.LastError().Error()
	default:
		h.Status = component.StatusDegraded
		h.Message = "model not loaded"
	}
	return h
}
