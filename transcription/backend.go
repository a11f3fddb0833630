package transcription

import (
	"context"

	"github.com/kbukum/whisperjob/audio"
	"github.com/kbukum/whisperjob/provider"
)

// Backend creates model handles. Load is expensive and is called once per
// process through Model.
type Backend interface {
	provider.Provider
	Load(ctx context.Context, spec ModelSpec) (Handle, error)
}

// Handle is a loaded model.
type Handle interface {
	// LoadAudio opens a canonical waveform for inference.
	LoadAudio(ctx context.Context, path string) (*audio.Waveform, error)
	// Transcribe runs inference with a fixed language hint.
	Transcribe(ctx context.Context, wf *audio.Waveform, language string) (*Result, error)
}

// NewRegistry creates a registry of backend factories.
func NewRegistry() *provider.Registry[Backend] {
	return provider.NewRegistry[Backend]()
}
