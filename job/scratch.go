package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	rawFile        = "raw_audio.bin"
	normalizedFile = "normalized.wav"
)

// Scratch is a job-private temporary directory.
type Scratch struct {
	Dir  string
	once sync.Once
	err  error
}

// NewScratch creates a fresh directory under root. An empty root uses the
// system temp dir.
func NewScratch(root string) (*Scratch, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o700); err != nil {
			return nil, fmt.Errorf("create scratch root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "job-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{Dir: dir}, nil
}

// RawPath is where the decoded input is written.
func (s *Scratch) RawPath() string { return filepath.Join(s.Dir, rawFile) }

// NormalizedPath is where the normalizer writes the canonical waveform.
func (s *Scratch) NormalizedPath() string { return filepath.Join(s.Dir, normalizedFile) }

// WriteRaw stores the decoded input bytes.
func (s *Scratch) WriteRaw(data []byte) error {
	if err := os.WriteFile(s.RawPath(), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", rawFile, err)
	}
	return nil
}

// Close removes the directory and everything in it. It is safe to call
// more than once.
func (s *Scratch) Close() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.err = fmt.Errorf("remove scratch dir: %w", err)
		}
	})
	return s.err
}
