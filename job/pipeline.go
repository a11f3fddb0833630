package job

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/whisperjob/audio"
	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/logger"
	"github.com/kbukum/whisperjob/observability"
	"github.com/kbukum/whisperjob/process"
	"github.com/kbukum/whisperjob/transcription"
)

// State is a pipeline state. A job visits them in declaration order.
type State string

const (
	StateReceived    State = "received"
	StateModelReady  State = "model_ready"
	StateDecoded     State = "decoded"
	StateNormalized  State = "normalized"
	StateTranscribed State = "transcribed"
	StateAssembled   State = "assembled"
)

// Normalizer produces the canonical waveform. *audio.Normalizer satisfies it.
type Normalizer interface {
	Normalize(ctx context.Context, req audio.Request) (*audio.Waveform, error)
}

// NormalizerFunc adapts a function, such as the Execute method of a
// middleware-wrapped normalizer, to Normalizer.
type NormalizerFunc func(ctx context.Context, req audio.Request) (*audio.Waveform, error)

// Normalize calls f.
func (f NormalizerFunc) Normalize(ctx context.Context, req audio.Request) (*audio.Waveform, error) {
	return f(ctx, req)
}

// Engine is the loaded-once recognition model. *transcription.Model
// satisfies it.
type Engine interface {
	Ensure(ctx context.Context) error
	Transcribe(ctx context.Context, path, language string) (*transcription.Result, error)
	Language() string
}

// Config is the pipeline section of the service config.
type Config struct {
	// ScratchDir is the parent of per-job temporary directories.
	ScratchDir string `yaml:"scratch_dir" mapstructure:"scratch_dir"`
	// EchoAudio returns the normalized waveform with every transcript.
	EchoAudio bool `yaml:"echo_audio" mapstructure:"echo_audio"`
}

// Pipeline processes jobs. It is safe for concurrent use; each call to
// Process owns its own scratch directory.
type Pipeline struct {
	cfg        Config
	normalizer Normalizer
	engine     Engine
	metrics    *observability.Metrics
	log        *logger.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMetrics records job and stage metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline wires a pipeline.
func NewPipeline(cfg Config, normalizer Normalizer, engine Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		normalizer: normalizer,
		engine:     engine,
		log:        logger.Get("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries per-job state between stages.
type run struct {
	job     Job
	scratch *Scratch
	wave    *audio.Waveform
	result  *transcription.Result
	env     Envelope
}

// Process runs j to completion and returns its envelope. It never returns
// an error and never panics; every failure becomes a Failure envelope.
func (p *Pipeline) Process(ctx context.Context, j Job) (env Envelope) {
	ctx = logger.ContextWithJobID(ctx, j.ID)
	ctx, span := observability.StartSpan(ctx, "job.process",
		trace.WithAttributes(attribute.String(observability.AttrJobID, j.ID)))
	defer span.End()

	log := p.log.WithContext(ctx)
	start := time.Now()
	if p.metrics != nil {
		p.metrics.RecordJobStart(ctx)
	}
	log.Info("job received", logger.Fields("format", j.Input.Hint().String()))

	r := &run{job: j}
	defer func() {
		if rec := recover(); rec != nil {
			env = p.fail(ctx, "", apperrors.Internal(fmt.Errorf("panic: %v", rec)))
		}
		if r.scratch != nil {
			if err := r.scratch.Close(); err != nil {
				log.Warn("scratch cleanup failed", logger.ErrorFields("cleanup", err))
			}
		}
		p.finish(ctx, env, time.Since(start))
	}()

	steps := []struct {
		state State
		fn    func(context.Context, *run) *apperrors.AppError
	}{
		{StateReceived, p.receive},
		{StateModelReady, p.ensureModel},
		{StateDecoded, p.decode},
		{StateNormalized, p.normalize},
		{StateTranscribed, p.transcribe},
		{StateAssembled, p.assemble},
	}
	for _, step := range steps {
		if appErr := p.stage(ctx, step.state, r, step.fn); appErr != nil {
			return p.fail(ctx, step.state, appErr)
		}
	}
	return r.env
}

func (p *Pipeline) stage(ctx context.Context, state State, r *run, fn func(context.Context, *run) *apperrors.AppError) *apperrors.AppError {
	sctx, scope := observability.StartStage(ctx, p.metrics, string(state))
	appErr := fn(sctx, r)
	if appErr != nil {
		observability.SetSpanAttribute(sctx, observability.AttrErrorCode, string(appErr.Code))
		scope.End(sctx, appErr)
	} else {
		scope.End(sctx, nil)
	}
	p.log.WithContext(ctx).Debug("stage finished", logger.Fields(
		logger.FieldStage, string(state),
		logger.FieldStatus, statusOf(appErr),
		logger.FieldDuration, scope.Elapsed().Milliseconds(),
	))
	return appErr
}

func statusOf(err *apperrors.AppError) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// --- stages ---

func (p *Pipeline) receive(_ context.Context, r *run) *apperrors.AppError {
	if err := r.job.Input.Validate(); err != nil {
		return apperrors.Wrap(err)
	}
	return nil
}

func (p *Pipeline) ensureModel(ctx context.Context, _ *run) *apperrors.AppError {
	if err := p.engine.Ensure(ctx); err != nil {
		if canceled(ctx, err) {
			return canceledError(ctx)
		}
		return apperrors.ModelUnavailable(err)
	}
	return nil
}

func (p *Pipeline) decode(ctx context.Context, r *run) *apperrors.AppError {
	data, err := DecodeAudio(r.job.Input.AudioBase64)
	if err != nil {
		return apperrors.DecodeFailed(err)
	}
	r.scratch, err = NewScratch(p.cfg.ScratchDir)
	if err != nil {
		return apperrors.DecodeFailed(err)
	}
	if err := r.scratch.WriteRaw(data); err != nil {
		return apperrors.DecodeFailed(err)
	}
	observability.SetSpanAttribute(ctx, observability.AttrAudioBytes, len(data))
	return nil
}

func (p *Pipeline) normalize(ctx context.Context, r *run) *apperrors.AppError {
	wf, err := p.normalizer.Normalize(ctx, audio.Request{
		Source:      r.scratch.RawPath(),
		Destination: r.scratch.NormalizedPath(),
		Hint:        r.job.Input.Hint(),
	})
	if err != nil {
		return classifyNormalization(ctx, err)
	}
	r.wave = wf
	return nil
}

func (p *Pipeline) transcribe(ctx context.Context, r *run) *apperrors.AppError {
	res, err := p.engine.Transcribe(ctx, r.wave.Path, p.engine.Language())
	if err != nil {
		return classifyTranscription(ctx, err)
	}
	r.result = res
	observability.SetSpanAttribute(ctx, observability.AttrWordCount, res.WordCount())
	return nil
}

func (p *Pipeline) assemble(_ context.Context, r *run) *apperrors.AppError {
	var echo []byte
	if r.job.Input.ReturnAudio || p.cfg.EchoAudio {
		data, err := os.ReadFile(r.wave.Path)
		if err != nil {
			return apperrors.Internal(fmt.Errorf("read normalized audio: %w", err))
		}
		echo = data
	}
	// full_text is the engine's text as-is; only word texts are trimmed.
	var text string
	if r.result != nil {
		text = r.result.Text
	}
	r.env = BuildEnvelope(text, Flatten(r.result), echo)
	return nil
}

// --- error classification ---

func classifyNormalization(ctx context.Context, err error) *apperrors.AppError {
	var (
		timeoutErr   *audio.TimeoutError
		exitErr      *audio.NormalizationError
		integrityErr *audio.IntegrityError
	)
	switch {
	case stderrors.As(err, &timeoutErr):
		return apperrors.NormalizationTimeout(timeoutErr.Budget, timeoutErr.Diagnostics, err)
	case stderrors.As(err, &exitErr):
		return apperrors.NormalizationFailed(exitErr.ExitCode, exitErr.Diagnostics, err)
	case stderrors.As(err, &integrityErr):
		return apperrors.IntegrityFailed(integrityErr.Reason, err)
	case canceled(ctx, err) || stderrors.Is(err, process.ErrCanceled):
		return canceledError(ctx)
	default:
		return apperrors.Internal(err)
	}
}

func classifyTranscription(ctx context.Context, err error) *apperrors.AppError {
	if canceled(ctx, err) {
		return canceledError(ctx)
	}
	var engineErr *transcription.EngineError
	switch {
	case transcription.IsAudioLoadFailure(err):
		stderrors.As(err, &engineErr)
		return apperrors.AudioLoadFailed(err).WithDiagnostics(engineErr.Message)
	case stderrors.As(err, &engineErr):
		return apperrors.TranscriptionFailed(err).WithDiagnostics(engineErr.Message)
	default:
		return apperrors.TranscriptionFailed(err)
	}
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil &&
		(stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, ctx.Err()))
}

func canceledError(ctx context.Context) *apperrors.AppError {
	return apperrors.Internal(fmt.Errorf("job canceled: %w", ctx.Err()))
}

// --- terminal handling ---

func (p *Pipeline) fail(ctx context.Context, state State, appErr *apperrors.AppError) Envelope {
	fields := logger.Fields(
		logger.FieldCode, string(appErr.Code),
		"error_stage", string(appErr.Stage()),
		logger.FieldError, appErr.Message,
	)
	if state != "" {
		fields[logger.FieldStage] = string(state)
	}
	if appErr.Diagnostics != "" {
		fields["diagnostics"] = appErr.Diagnostics
	}
	p.log.WithContext(ctx).Warn("job failed", fields)
	observability.SetSpanError(ctx, appErr)
	observability.SetSpanAttribute(ctx, observability.AttrErrorCode, string(appErr.Code))
	if p.metrics != nil {
		p.metrics.RecordError(ctx, string(appErr.Code), "pipeline")
	}
	return FailureEnvelope(appErr)
}

func (p *Pipeline) finish(ctx context.Context, env Envelope, d time.Duration) {
	status, code := "success", ""
	if env.Failure != nil {
		status, code = "error", env.Failure.Code
	}
	if p.metrics != nil {
		p.metrics.RecordJobEnd(ctx, status, code, d)
	}
	if env.Transcript != nil {
		p.log.WithContext(ctx).Info("job completed", logger.Fields(
			"words", len(env.Transcript.Words),
			logger.FieldDuration, d.Milliseconds(),
		))
	}
}
