// Package whisper implements transcription.Backend against a faster-whisper
// HTTP sidecar that keeps the model resident on the GPU.
//
// Sidecar API:
//
//	GET  /health
//	POST /models/load   {"model", "device", "compute_type"}
//	POST /transcribe    multipart: audio, model, language, word_timestamps
package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/httpclient"
	"github.com/kbukum/whisperjob/provider"
	"github.com/kbukum/whisperjob/transcription"
	"github.com/kbukum/whisperjob/version"
)

const (
	// ProviderName is the registered name for the Whisper backend.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperTimeout = 10 * time.Minute
)

// Config holds configuration for the Whisper backend.
type Config struct {
	URL string `mapstructure:"url"`
	// Timeout bounds a single sidecar request. Model loads and long audio
	// can take minutes.
	Timeout time.Duration `mapstructure:"timeout"`
	// Token is sent as a bearer token when set.
	Token string `mapstructure:"token"`
}

// Backend implements transcription.Backend using the sidecar.
type Backend struct {
	cfg    Config
	client *httpclient.Adapter
}

var _ transcription.Backend = (*Backend)(nil)

// New creates a Whisper backend.
func New(cfg Config, opts ...httpclient.Option) (*Backend, error) {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	hc := httpclient.Config{
		Name:    ProviderName,
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
		Headers: map[string]string{"User-Agent": version.UserAgent("whisperjob")},
	}
	if cfg.Token != "" {
		hc.Auth = httpclient.BearerAuth(cfg.Token)
	}
	client, err := httpclient.New(hc, opts...)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Backend{cfg: cfg, client: client}, nil
}

// Factory returns a provider.Factory that creates Whisper backends from a
// generic config map.
func Factory() provider.Factory[transcription.Backend] {
	return func(raw map[string]any) (transcription.Backend, error) {
		var cfg Config
		if err := provider.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	}
}

// Name returns the backend name.
func (b *Backend) Name() string { return ProviderName }

// IsAvailable checks if the sidecar answers its health endpoint.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	resp, err := b.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.IsSuccess()
}

// Load asks the sidecar to load spec and returns a handle bound to it.
func (b *Backend) Load(ctx context.Context, spec transcription.ModelSpec) (transcription.Handle, error) {
	_, err := b.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/models/load",
		Body: loadRequest{
			Model:       spec.Name,
			Device:      spec.Device,
			ComputeType: spec.ComputeType,
		},
	})
	if err != nil {
		return nil, engineError(transcription.OpLoadModel, err)
	}
	return &handle{client: b.client, model: spec.Name}, nil
}

// Close releases idle sidecar connections.
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}

type handle struct {
	client *httpclient.Adapter
	model  string
}

// LoadAudio validates the waveform locally before it is uploaded.
func (h *handle) LoadAudio(_ context.Context, path string) (*audio.Waveform, error) {
	wf, err := audio.Inspect(path)
	if err != nil {
		return nil, &transcription.EngineError{
			Op:        transcription.OpLoadAudio,
			Message:   err.Error(),
			AudioLoad: true,
			Err:       err,
		}
	}
	return wf, nil
}

func (h *handle) Transcribe(ctx context.Context, wf *audio.Waveform, language string) (*transcription.Result, error) {
	f, err := os.Open(wf.Path)
	if err != nil {
		return nil, &transcription.EngineError{Op: transcription.OpLoadAudio, Message: err.Error(), AudioLoad: true, Err: err}
	}
	defer f.Close()

	fields := map[string]string{
		"model":           h.model,
		"word_timestamps": "true",
	}
	if language != "" {
		fields["language"] = language
	}
	resp, err := h.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    "audio.wav",
				ContentType: "audio/wav",
				Reader:      f,
			}},
		},
	})
	if err != nil {
		return nil, engineError(transcription.OpTranscribe, err)
	}

	var out transcribeResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, engineError(transcription.OpTranscribe, err)
	}
	return out.toResult(), nil
}

// --- sidecar wire types ---

type loadRequest struct {
	Model       string `json:"model"`
	Device      string `json:"device,omitempty"`
	ComputeType string `json:"compute_type,omitempty"`
}

type transcribeResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Text  string        `json:"text"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Words []whisperWord `json:"words"`
}

// whisperWord accepts both faster-whisper ("word") and
// whisper-timestamped ("text") spellings.
type whisperWord struct {
	Word  string  `json:"word"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (r *transcribeResponse) toResult() *transcription.Result {
	res := &transcription.Result{
		Text:     r.Text,
		Language: r.Language,
		Segments: make([]transcription.Segment, 0, len(r.Segments)),
	}
	for _, s := range r.Segments {
		seg := transcription.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
			Words: make([]transcription.Word, 0, len(s.Words)),
		}
		for _, w := range s.Words {
			text := w.Word
			if text == "" {
				text = w.Text
			}
			seg.Words = append(seg.Words, transcription.Word{Text: text, Start: w.Start, End: w.End})
		}
		res.Segments = append(res.Segments, seg)
	}
	return res
}

// engineError converts an HTTP failure into an EngineError carrying the
// sidecar's message. 422 means the sidecar could not load the audio.
func engineError(op string, err error) error {
	var he *httpclient.Error
	if !errors.As(err, &he) {
		return &transcription.EngineError{Op: op, Message: err.Error(), Err: err}
	}
	msg := he.Message
	var body errorBody
	if len(he.Body) > 0 && json.Unmarshal(he.Body, &body) == nil {
		switch {
		case body.Detail != "":
			msg = body.Detail
		case body.Error != "":
			msg = body.Error
		}
	}
	return &transcription.EngineError{
		Op:        op,
		Message:   strings.TrimSpace(msg),
		AudioLoad: he.StatusCode == http.StatusUnprocessableEntity,
		Err:       err,
	}
}
