package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Canonical waveform parameters.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

const wavFormatPCM = 1

// Waveform describes a WAV file on disk.
type Waveform struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
	// Frames is the number of samples per channel.
	Frames   int64
	Duration time.Duration
	// Size is the file size in bytes, header included.
	Size int64
}

// IsCanonical reports whether the waveform matches the engine's input format.
func (w *Waveform) IsCanonical() bool {
	return w.SampleRate == CanonicalSampleRate &&
		w.Channels == CanonicalChannels &&
		w.BitDepth == CanonicalBitDepth
}

// Inspect reads the WAV header at path. It fails with *IntegrityError when
// the file is missing, empty, not a linear PCM WAV or carries no frames.
func Inspect(path string) (*Waveform, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IntegrityError{Path: path, Reason: "normalized output is missing", Err: err}
	}
	if info.Size() == 0 {
		return nil, &IntegrityError{Path: path, Reason: "normalized output is empty (0 bytes)"}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IntegrityError{Path: path, Reason: "normalized output is unreadable", Err: err}
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, &IntegrityError{Path: path, Reason: "normalized output is not a valid WAV file", Err: d.Err()}
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, &IntegrityError{Path: path, Reason: fmt.Sprintf("normalized output is not linear PCM (format tag %d)", d.WavAudioFormat)}
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, &IntegrityError{Path: path, Reason: "normalized output has no data chunk", Err: err}
	}

	w := &Waveform{
		Path:       path,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Size:       info.Size(),
	}
	if frameBytes := int64(w.Channels * w.BitDepth / 8); frameBytes > 0 {
		w.Frames = d.PCMLen() / frameBytes
	}
	if w.Frames == 0 {
		return nil, &IntegrityError{Path: path, Reason: "normalized output has no audio frames"}
	}
	if w.SampleRate > 0 {
		w.Duration = time.Duration(w.Frames) * time.Second / time.Duration(w.SampleRate)
	}
	return w, nil
}

// ReadSamples decodes the full PCM payload of a WAV file.
func ReadSamples(path string) (*goaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	return buf, nil
}

// RMS returns the root mean square of buf normalized to [0, 1].
func RMS(buf *goaudio.IntBuffer) float64 {
	if buf == nil || len(buf.Data) == 0 {
		return 0
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = CanonicalBitDepth
	}
	full := float64(int64(1) << (bitDepth - 1))

	var sum float64
	for _, s := range buf.Data {
		v := float64(s) / full
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf.Data)))
}

// WriteWAV encodes samples as a PCM WAV file.
func WriteWAV(path string, samples []int, sampleRate, channels, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("audio: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("audio: finalize %s: %w", path, err)
	}
	return f.Close()
}
