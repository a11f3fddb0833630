package transcription

// Word is one recognized word with its time span in seconds.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a contiguous run of words as emitted by the engine.
type Segment struct {
	Text  string  `json:"text,omitempty"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Result is the nested engine output. Segment and word order is the
// engine's and is authoritative.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// WordCount returns the number of words across all segments.
func (r *Result) WordCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, s := range r.Segments {
		n += len(s.Words)
	}
	return n
}

// ModelSpec names the model a backend should load.
type ModelSpec struct {
	Name        string
	Device      string
	ComputeType string
}
