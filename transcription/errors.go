package transcription

import (
	"errors"
	"fmt"
	"strings"
)

// Engine operations reported in EngineError.Op.
const (
	OpLoadModel  = "load_model"
	OpLoadAudio  = "load_audio"
	OpTranscribe = "transcribe"
)

// ErrNotLoaded is returned by Model.Transcribe before a successful Ensure.
var ErrNotLoaded = errors.New("transcription: model not loaded")

// EngineError carries the engine's own message. AudioLoad marks failures to
// read the waveform as opposed to model failures.
type EngineError struct {
	Op        string
	Message   string
	AudioLoad bool
	Err       error
}

func (e *EngineError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

// audioLoadMarkers are substrings engines use when the waveform itself was
// unreadable.
var audioLoadMarkers = []string{
	"load audio",
	"load_audio",
	"loading audio",
	"failed to read audio",
	"invalid data found when processing input",
	"could not decode",
}

// IsAudioLoadFailure reports whether err is an audio load failure, either
// flagged by the backend or recognizable from the engine message.
func IsAudioLoadFailure(err error) bool {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return false
	}
	if ee.AudioLoad || ee.Op == OpLoadAudio {
		return true
	}
	msg := strings.ToLower(ee.Message)
	for _, m := range audioLoadMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
