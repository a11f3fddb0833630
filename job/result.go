package job

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"

	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/transcription"
)

// WordRecord is one flattened word. 0 <= Start <= End always holds.
type WordRecord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the success payload.
type Transcript struct {
	FullText    string       `json:"full_text"`
	Words       []WordRecord `json:"words"`
	AudioBase64 string       `json:"audio_base64,omitempty"`
}

// Failure is the error payload.
type Failure struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Envelope holds exactly one of Transcript or Failure.
type Envelope struct {
	Transcript *Transcript
	Failure    *Failure
}

// OK reports whether the envelope is a success.
func (e Envelope) OK() bool { return e.Failure == nil && e.Transcript != nil }

// MarshalJSON renders whichever variant is set, flat.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Failure != nil {
		return json.Marshal(e.Failure)
	}
	if e.Transcript != nil {
		return json.Marshal(e.Transcript)
	}
	return json.Marshal(Failure{Error: "empty response", Code: string(apperrors.ErrCodeInternal)})
}

// UnmarshalJSON reads either variant; the presence of "error" selects Failure.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		e.Transcript, e.Failure = nil, &Failure{}
		return json.Unmarshal(data, e.Failure)
	}
	e.Failure, e.Transcript = nil, &Transcript{}
	return json.Unmarshal(data, e.Transcript)
}

// Flatten turns nested engine output into an ordered word list. Segment and
// word order is kept as emitted, never re-sorted. Text is trimmed; negative
// or inverted times are clamped so that 0 <= start <= end.
func Flatten(res *transcription.Result) []WordRecord {
	words := make([]WordRecord, 0, res.WordCount())
	if res == nil {
		return words
	}
	for _, seg := range res.Segments {
		for _, w := range seg.Words {
			start := clampTime(w.Start)
			end := clampTime(w.End)
			if end < start {
				end = start
			}
			words = append(words, WordRecord{
				Text:  strings.TrimSpace(w.Text),
				Start: start,
				End:   end,
			})
		}
	}
	return words
}

func clampTime(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return t
}

// BuildEnvelope composes the success envelope. normalizedAudio is echoed
// as base64 when non-nil.
func BuildEnvelope(fullText string, words []WordRecord, normalizedAudio []byte) Envelope {
	if words == nil {
		words = []WordRecord{}
	}
	t := &Transcript{FullText: fullText, Words: words}
	if normalizedAudio != nil {
		t.AudioBase64 = base64.StdEncoding.EncodeToString(normalizedAudio)
	}
	return Envelope{Transcript: t}
}

// FailureEnvelope renders a stage error.
func FailureEnvelope(err *apperrors.AppError) Envelope {
	return Envelope{Failure: &Failure{
		Error:   err.Message,
		Details: err.Diagnostics,
		Code:    string(err.Code),
	}}
}

// Outcome labels, in the dispatcher's vocabulary.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Outcome is what transports return to a dispatcher: the job id, a status
// label and the envelope itself.
type Outcome struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output Envelope `json:"output"`
}

// NewOutcome labels env for job id.
func NewOutcome(id string, env Envelope) Outcome {
	status := StatusCompleted
	if !env.OK() {
		status = StatusFailed
	}
	return Outcome{ID: id, Status: status, Output: env}
}
