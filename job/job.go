package job

import (
	"encoding/json"
	"strings"

	"github.com/kbukum/whisperjob/audio"
	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/validation"
)

// Job is one request unit as delivered by a dispatcher.
type Job struct {
	ID    string `json:"id"`
	Input Input  `json:"input"`
}

// Input carries the audio payload and optional format hints.
type Input struct {
	AudioBase64 string `json:"audio_base64"`
	// Format is "auto" (default) or "pcm_s16le" for headerless PCM.
	Format string `json:"format,omitempty" validate:"omitempty,oneof=auto pcm_s16le"`
	// SampleRate and Channels describe raw PCM input. Unset values fall back
	// to the normalizer's raw defaults; both are ignored in auto mode.
	SampleRate int `json:"sample_rate,omitempty" validate:"omitempty,gte=8000,lte=192000"`
	Channels   int `json:"channels,omitempty" validate:"omitempty,min=1,max=8"`
	// ReturnAudio echoes the normalized waveform in the response.
	ReturnAudio bool `json:"return_audio,omitempty"`
}

// Parse decodes a job from its JSON form.
func Parse(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, apperrors.InvalidInput("malformed job: " + err.Error()).WithCause(err)
	}
	return j, nil
}

// Validate checks the input before any filesystem or model work. A missing
// payload is INPUT_MISSING; bad hints are INVALID_INPUT.
func (in Input) Validate() error {
	if strings.TrimSpace(in.AudioBase64) == "" {
		return apperrors.InputMissing("audio_base64")
	}
	return validation.Validate(in)
}

// Hint converts the format fields into a normalizer hint.
func (in Input) Hint() audio.Hint {
	mode, err := audio.ParseMode(in.Format)
	if err != nil || mode != audio.ModeRawPCM {
		return audio.Hint{Mode: audio.ModeAuto}
	}
	return audio.Hint{Mode: mode, SampleRate: in.SampleRate, Channels: in.Channels}
}
