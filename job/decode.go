package job

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode"
)

// ErrEmptyAudio is returned when the payload decodes to zero bytes.
var ErrEmptyAudio = errors.New("decoded audio is empty")

// DecodeAudio decodes a base64 payload. Whitespace (line-wrapped encoders)
// is ignored and unpadded input is accepted.
func DecodeAudio(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(s)
		if rawErr != nil {
			return nil, err
		}
		data = raw
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return data, nil
}
