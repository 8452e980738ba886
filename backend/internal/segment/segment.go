package segment

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
)

// Segmenter splits a raw message into ordered language-tagged spans. It is
// a pure function of its input: spans always partition the message exactly,
// with every byte of whitespace and punctuation preserved.
//
// Detection is two-tier, fast and deterministic: non-Latin script runs are
// tagged directly, Latin-script clauses go through a function-word vote.
// Anything ambiguous (short runs, proper nouns, numerals) defaults to
// English so the pipeline never translates spuriously.
type Segmenter struct {
	logger *log.Logger
}

// New creates a Segmenter.
func New(logger *log.Logger) *Segmenter {
	return &Segmenter{logger: logger}
}

// Name returns the stage identifier.
func (s *Segmenter) Name() string {
	return "segmenter"
}

// Priority returns the execution order.
func (s *Segmenter) Priority() int {
	return 10
}

// Run tags the context with the message's spans.
func (s *Segmenter) Run(_ context.Context, tc *pipeline.Context) error {
	spans := Split(tc.Raw)
	if !message.Coverage(tc.Raw, spans) {
		// Split guarantees coverage by construction; a violation here is a
		// bug, and we refuse to continue with corrupted evidence.
		return fmt.Errorf("segmenter produced spans that do not cover the message")
	}
	tc.Spans = spans
	return nil
}

// Split segments raw into language-tagged spans. The empty message yields
// no spans.
func Split(raw string) []message.Span {
	if raw == "" {
		return nil
	}

	var spans []message.Span
	for _, chunk := range clauses(raw) {
		for _, piece := range scriptRuns(chunk.text) {
			lang := classify(piece.text)
			spans = append(spans, message.Span{
				Text:     piece.text,
				Language: lang,
				Start:    chunk.start + piece.start,
				End:      chunk.start + piece.start + len(piece.text),
			})
		}
	}
	return merge(spans)
}

type run struct {
	text  string
	start int
}

// clauses cuts raw after sentence terminators (., !, ?, newline) including
// any trailing whitespace, so every clause carries its own punctuation.
func clauses(raw string) []run {
	var out []run
	start := 0
	i := 0
	for i < len(raw) {
		r := raw[i]
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			// Consume the whole terminator run plus following spaces.
			j := i + 1
			for j < len(raw) && (raw[j] == '.' || raw[j] == '!' || raw[j] == '?' || raw[j] == '\n' || raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\r') {
				j++
			}
			out = append(out, run{text: raw[start:j], start: start})
			start = j
			i = j
			continue
		}
		i++
	}
	if start < len(raw) {
		out = append(out, run{text: raw[start:], start: start})
	}
	return out
}

// scriptRuns splits a clause at Latin/non-Latin letter transitions.
// Neutral characters (digits, punctuation, whitespace) stay with the run
// they appear in; a transition only happens on a letter of the other kind.
func scriptRuns(text string) []run {
	var out []run
	start := 0
	current := 0 // 0 unknown, 1 latin, 2 other
	for i, r := range text {
		kind := 0
		if unicode.IsLetter(r) {
			if unicode.Is(unicode.Latin, r) {
				kind = 1
			} else {
				kind = 2
			}
		}
		if kind == 0 {
			continue
		}
		if current == 0 {
			current = kind
			continue
		}
		if kind != current {
			out = append(out, run{text: text[start:i], start: start})
			start = i
			current = kind
		}
	}
	if start < len(text) {
		out = append(out, run{text: text[start:], start: start})
	}
	return out
}

// classify tags one run. Non-Latin letters mean non-English outright; for
// Latin script a function-word vote decides, with ties going to English.
func classify(text string) message.Language {
	foreign := 0
	english := 0

	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return message.LangOther
		}
	}

	for _, word := range words(text) {
		switch {
		case englishWords[word]:
			english++
		case foreignWords[word]:
			foreign++
		case hasAccent(word):
			foreign++
		}
	}

	if foreign > english {
		return message.LangOther
	}
	return message.LangEnglish
}

// words lowercases and tokenizes a run into letter sequences, keeping
// embedded apostrophes so contractions vote as one word.
func words(text string) []string {
	lowered := strings.ReplaceAll(strings.ToLower(text), "’", "'")
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// hasAccent reports whether a word carries non-ASCII Latin letters, a
// strong signal for non-English text in Latin script.
func hasAccent(word string) bool {
	for _, r := range word {
		if r > 127 && unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

// merge collapses adjacent spans with the same language tag.
func merge(spans []message.Span) []message.Span {
	if len(spans) == 0 {
		return nil
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.Language == last.Language && s.Start == last.End {
			last.Text += s.Text
			last.End = s.End
			continue
		}
		out = append(out, s)
	}
	return out
}
