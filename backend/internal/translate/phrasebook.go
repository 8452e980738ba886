package translate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
)

// Phrasebook is the rule-based translation backend: exact phrase lookup
// with a word-level fallback. It is fully deterministic, which makes it
// the backend of choice for tests and offline deployments; anything it
// does not know is reported as unsupported so the normalizer can pass the
// span through flagged.
type Phrasebook struct {
	phrases map[string]string
	words   map[string]string
}

// phrasebookFile is the YAML shape of a phrasebook on disk.
type phrasebookFile struct {
	Phrases map[string]string `yaml:"phrases"`
	Words   map[string]string `yaml:"words"`
}

// NewPhrasebook returns the built-in phrasebook.
func NewPhrasebook() *Phrasebook {
	return &Phrasebook{phrases: defaultPhrases(), words: defaultWords()}
}

// LoadPhrasebook reads a phrasebook YAML file and merges it over the
// built-in entries.
func LoadPhrasebook(path string) (*Phrasebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrasebook: %w", err)
	}
	var file phrasebookFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse phrasebook: %w", err)
	}

	pb := NewPhrasebook()
	for k, v := range file.Phrases {
		pb.phrases[normalizeKey(k)] = v
	}
	for k, v := range file.Words {
		pb.words[strings.ToLower(k)] = v
	}
	return pb, nil
}

// Name returns the backend identifier.
func (p *Phrasebook) Name() string {
	return "phrasebook"
}

// DetectLanguage reports Other for text the book knows how to translate,
// English otherwise.
func (p *Phrasebook) DetectLanguage(_ context.Context, text string) (message.Language, error) {
	if _, ok := p.phrases[normalizeKey(text)]; ok {
		return message.LangOther, nil
	}
	return message.LangEnglish, nil
}

// Translate renders a span via phrase lookup, falling back to word-level
// substitution. The span's surrounding punctuation and whitespace are
// reattached unchanged.
func (p *Phrasebook) Translate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prefix, core, suffix := trimAffixes(text)
	if core == "" {
		return "", ErrUnsupported
	}

	if phrase, ok := p.phrases[normalizeKey(core)]; ok {
		return prefix + phrase + suffix, nil
	}

	// Word-level fallback: substitute every known word in place. If
	// nothing is known, the span is unsupported.
	translated, matched := p.translateWords(core)
	if !matched {
		return "", ErrUnsupported
	}
	return prefix + translated + suffix, nil
}

func (p *Phrasebook) translateWords(core string) (string, bool) {
	var b strings.Builder
	matched := false
	word := strings.Builder{}

	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if repl, ok := p.words[strings.ToLower(w)]; ok {
			b.WriteString(repl)
			matched = true
		} else {
			b.WriteString(w)
		}
		word.Reset()
	}

	for _, r := range core {
		if unicode.IsLetter(r) || r == '\'' {
			word.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String(), matched
}

// trimAffixes splits a span into its non-letter prefix, the translatable
// core, and the non-letter suffix so formatting survives translation.
func trimAffixes(text string) (prefix, core, suffix string) {
	start := 0
	for start < len(text) {
		r, size := utf8.DecodeRuneInString(text[start:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		start += size
	}
	end := len(text)
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		end -= size
	}
	return text[:start], text[start:end], text[end:]
}

// normalizeKey lowercases a phrase and collapses whitespace so lookup is
// insensitive to formatting.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
