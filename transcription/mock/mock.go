// Package mock provides a deterministic transcription backend. Silent
// waveforms produce no words; anything else produces the configured text
// with word timings spread evenly over the waveform.
package mock

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/provider"
	"github.com/kbukum/whisperjob/transcription"
)

// ProviderName is the registered name for the mock backend.
const ProviderName = "mock"

const defaultSilenceThreshold = 0.001

// Config configures the mock backend.
type Config struct {
	// Text is returned for non-silent audio.
	Text string `mapstructure:"text"`
	// SilenceThreshold is the RMS below which audio counts as silence.
	SilenceThreshold float64 `mapstructure:"silence_threshold"`
	// LoadDelay simulates a cold start.
	LoadDelay time.Duration `mapstructure:"load_delay"`
	// LoadError makes Load fail with this message.
	LoadError string `mapstructure:"load_error"`
}

// Backend implements transcription.Backend.
type Backend struct {
	cfg Config
}

var _ transcription.Backend = (*Backend)(nil)

// New creates a mock backend.
func New(cfg Config) *Backend {
	if cfg.Text == "" {
		cfg.Text = "hello world"
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = defaultSilenceThreshold
	}
	return &Backend{cfg: cfg}
}

// Factory returns a provider.Factory building mock backends from a config map.
func Factory() provider.Factory[transcription.Backend] {
	return func(raw map[string]any) (transcription.Backend, error) {
		var cfg Config
		if err := provider.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg), nil
	}
}

// Name implements provider.Provider.
func (b *Backend) Name() string { return ProviderName }

// IsAvailable implements provider.Provider.
func (b *Backend) IsAvailable(context.Context) bool { return true }

// Load returns a handle after the configured delay.
func (b *Backend) Load(ctx context.Context, _ transcription.ModelSpec) (transcription.Handle, error) {
	if b.cfg.LoadDelay > 0 {
		select {
		case <-time.After(b.cfg.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.cfg.LoadError != "" {
		return nil, &transcription.EngineError{Op: transcription.OpLoadModel, Message: b.cfg.LoadError}
	}
	return &handle{cfg: b.cfg}, nil
}

type handle struct {
	cfg Config
}

func (h *handle) LoadAudio(_ context.Context, path string) (*audio.Waveform, error) {
	wf, err := audio.Inspect(path)
	if err != nil {
		return nil, &transcription.EngineError{
			Op:        transcription.OpLoadAudio,
			Message:   "failed to load audio: " + err.Error(),
			AudioLoad: true,
			Err:       err,
		}
	}
	return wf, nil
}

func (h *handle) Transcribe(ctx context.Context, wf *audio.Waveform, language string) (*transcription.Result, error) {
	if wf == nil {
		return nil, &transcription.EngineError{Op: transcription.OpTranscribe, Message: "no waveform"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := audio.ReadSamples(wf.Path)
	if err != nil {
		return nil, &transcription.EngineError{Op: transcription.OpTranscribe, Message: err.Error(), Err: err}
	}

	res := &transcription.Result{Language: language, Segments: []transcription.Segment{}}
	if audio.RMS(buf) < h.cfg.SilenceThreshold {
		return res, nil
	}

	words := strings.Fields(h.cfg.Text)
	if len(words) == 0 {
		return res, nil
	}
	total := wf.Duration.Seconds()
	step := total / float64(len(words))
	seg := transcription.Segment{Start: 0, End: total, Text: " " + strings.Join(words, " ")}
	for i, w := range words {
		seg.Words = append(seg.Words, transcription.Word{
			Text:  " " + w,
			Start: float64(i) * step,
			End:   float64(i+1) * step,
		})
	}
	res.Text = seg.Text
	res.Segments = append(res.Segments, seg)
	return res, nil
}
