package audio

import (
	"fmt"
	"strconv"
)

// Mode selects how the transcoder interprets the input.
type Mode string

const (
	// ModeAuto lets the transcoder detect container and codec from the
	// input's own headers.
	ModeAuto Mode = "auto"
	// ModeRawPCM declares headerless little-endian signed 16-bit PCM with
	// the sample rate and channel count given in the hint.
	ModeRawPCM Mode = "pcm_s16le"
)

// Hint describes the input audio as asserted by the caller.
type Hint struct {
	Mode       Mode
	SampleRate int
	Channels   int
}

// ParseMode maps a job's format field to a Mode. Empty means auto-detect.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeRawPCM:
		return ModeRawPCM, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// inputArgs returns the transcoder arguments that describe the source.
func (h Hint) inputArgs(src string) []string {
	if h.Mode == ModeRawPCM {
		return []string{
			"-f", "s16le",
			"-ar", strconv.Itoa(h.SampleRate),
			"-ac", strconv.Itoa(h.Channels),
			"-i", src,
		}
	}
	return []string{"-i", src}
}

// String renders the hint for logs.
func (h Hint) String() string {
	if h.Mode == ModeRawPCM {
		return fmt.Sprintf("%s/%dHz/%dch", h.Mode, h.SampleRate, h.Channels)
	}
	return string(ModeAuto)
}
