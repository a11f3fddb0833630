package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/whisperjob/process"
	"github.com/kbukum/whisperjob/provider"
)

var _ provider.RequestResponse[Request, *Waveform] = (*Normalizer)(nil)

// Runner executes transcoder commands. *process.Adapter satisfies it.
type Runner = provider.RequestResponse[process.Command, *process.Result]

// Config is the normalizer section of the service config.
type Config struct {
	// Binary is the transcoder executable.
	Binary string `yaml:"binary" mapstructure:"binary" validate:"required"`
	// Timeout bounds a single transcoder run.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// GracePeriod is the SIGTERM to SIGKILL delay once the timeout fires.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// RawSampleRate and RawChannels fill raw PCM hints that omit them.
	RawSampleRate int `yaml:"raw_sample_rate" mapstructure:"raw_sample_rate" validate:"gte=8000,lte=192000"`
	RawChannels   int `yaml:"raw_channels" mapstructure:"raw_channels" validate:"min=1,max=8"`
	// Threads is passed as -threads when positive.
	Threads int `yaml:"threads" mapstructure:"threads" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.RawSampleRate == 0 {
		c.RawSampleRate = 24000
	}
	if c.RawChannels == 0 {
		c.RawChannels = 1
	}
}

// Request asks for Source to be normalized into Destination.
type Request struct {
	Source      string
	Destination string
	Hint        Hint
}

// Normalizer converts arbitrary input audio into the canonical waveform by
// running the external transcoder.
type Normalizer struct {
	cfg    Config
	runner Runner
}

// NewNormalizer creates a normalizer running commands through a
// process.Adapter configured with cfg's timeout and grace period.
func NewNormalizer(cfg Config) *Normalizer {
	cfg.ApplyDefaults()
	return NewNormalizerWithRunner(cfg, process.NewAdapter(process.Config{
		Name:        "transcoder",
		Binary:      cfg.Binary,
		Timeout:     cfg.Timeout,
		GracePeriod: cfg.GracePeriod,
	}))
}

// NewNormalizerWithRunner creates a normalizer with a custom runner.
func NewNormalizerWithRunner(cfg Config, runner Runner) *Normalizer {
	cfg.ApplyDefaults()
	return &Normalizer{cfg: cfg, runner: runner}
}

// Name implements provider.Provider.
func (n *Normalizer) Name() string { return "normalizer" }

// IsAvailable reports whether the transcoder can be run.
func (n *Normalizer) IsAvailable(ctx context.Context) bool {
	return n.runner.IsAvailable(ctx)
}

// Execute implements provider.RequestResponse.
func (n *Normalizer) Execute(ctx context.Context, req Request) (*Waveform, error) {
	return n.Normalize(ctx, req)
}

// Args builds the transcoder command line for req.
func (n *Normalizer) Args(req Request) []string {
	hint := n.resolveHint(req.Hint)
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}
	if n.cfg.Threads > 0 {
		args = append(args, "-threads", fmt.Sprint(n.cfg.Threads))
	}
	args = append(args, hint.inputArgs(req.Source)...)
	return append(args,
		"-vn",
		"-ac", fmt.Sprint(CanonicalChannels),
		"-ar", fmt.Sprint(CanonicalSampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		req.Destination,
	)
}

func (n *Normalizer) resolveHint(h Hint) Hint {
	if h.Mode != ModeRawPCM {
		return Hint{Mode: ModeAuto}
	}
	if h.SampleRate <= 0 {
		h.SampleRate = n.cfg.RawSampleRate
	}
	if h.Channels <= 0 {
		h.Channels = n.cfg.RawChannels
	}
	return h
}

// Normalize runs the transcoder and verifies its output. Failures are
// *NormalizationError, *TimeoutError or *IntegrityError; a canceled ctx is
// returned as-is.
func (n *Normalizer) Normalize(ctx context.Context, req Request) (*Waveform, error) {
	if req.Source == "" || req.Destination == "" {
		return nil, fmt.Errorf("audio: source and destination are required")
	}
	// A stale destination must not pass the integrity check.
	if err := os.Remove(req.Destination); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("audio: clear destination: %w", err)
	}

	res, err := n.runner.Execute(ctx, process.Command{
		Binary: n.cfg.Binary,
		Args:   n.Args(req),
	})
	if err != nil {
		var diag string
		exitCode := -1
		if res != nil {
			diag = string(res.Stderr)
			exitCode = res.ExitCode
		}
		switch {
		case errors.Is(err, process.ErrTimeout):
			return nil, &TimeoutError{Budget: n.cfg.Timeout, Diagnostics: diag, Err: err}
		case errors.Is(err, process.ErrCanceled):
			return nil, err
		default:
			return nil, &NormalizationError{ExitCode: exitCode, Diagnostics: diag, Err: err}
		}
	}

	wf, err := Inspect(req.Destination)
	if err != nil {
		return nil, err
	}
	if !wf.IsCanonical() {
		return nil, &IntegrityError{
			Path: req.Destination,
			Reason: fmt.Sprintf("normalized output is %d Hz/%d ch/%d-bit, want %d Hz/%d ch/%d-bit",
				wf.SampleRate, wf.Channels, wf.BitDepth,
				CanonicalSampleRate, CanonicalChannels, CanonicalBitDepth),
		}
	}
	return wf, nil
}
