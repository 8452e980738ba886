package message

// Language tags a span of the original message. The pipeline only has to
// distinguish English from everything else; finer-grained detection is the
// translator backend's concern.
type Language string

const (
	LangEnglish Language = "english"
	LangOther   Language = "other"
)

// Span is a contiguous run of the original message carrying a single
// language tag. Spans partition the message exactly: no gaps, no overlaps,
// original order preserved.
type Span struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
	Start    int      `json:"start"` // byte offset into the original message
	End      int      `json:"end"`   // exclusive
}

// TranslatedSpan records what happened to one span during normalization.
// Passthrough is set when the backend could not translate the span and its
// original text was kept; the pipeline continues on a best-effort basis.
type TranslatedSpan struct {
	Source      Span   `json:"source"`
	Text        string `json:"text"`
	Translated  bool   `json:"translated"`
	Passthrough bool   `json:"passthrough,omitempty"`
}

// NormalizedMessage is the fully-English rendering of a message along with
// the span-level provenance needed for audit. Concatenating the provenance
// texts in order always reproduces Text exactly.
type NormalizedMessage struct {
	Text       string           `json:"text"`
	Provenance []TranslatedSpan `json:"provenance"`
}

// Coverage reports whether the spans partition raw exactly, in order.
func Coverage(raw string, spans []Span) bool {
	offset := 0
	for _, s := range spans {
		if s.Start != offset || s.End != s.Start+len(s.Text) {
			return false
		}
		if raw[s.Start:s.End] != s.Text {
			return false
		}
		offset = s.End
	}
	return offset == len(raw)
}

// HasPassthrough reports whether any non-English span survived untranslated.
func (n *NormalizedMessage) HasPassthrough() bool {
	for _, p := range n.Provenance {
		if p.Passthrough {
			return true
		}
	}
	return false
}

// TranslatedCount returns the number of spans that were actually translated.
func (n *NormalizedMessage) TranslatedCount() int {
	count := 0
	for _, p := range n.Provenance {
		if p.Translated {
			count++
		}
	}
	return count
}
