package translate

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/metrics"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
)

// Normalizer is the pipeline stage that maps every non-English span to its
// English equivalent and reassembles the message in original order.
// English spans pass through byte-identical, which makes normalization
// idempotent: an already-English message comes out unchanged.
type Normalizer struct {
	backend Backend
	logger  *log.Logger
}

// NewNormalizer creates a Normalizer over the given translation backend.
func NewNormalizer(backend Backend, logger *log.Logger) *Normalizer {
	return &Normalizer{backend: backend, logger: logger}
}

// Name returns the stage identifier.
func (n *Normalizer) Name() string {
	return "normalizer"
}

// Priority returns the execution order.
func (n *Normalizer) Priority() int {
	return 20
}

// Run normalizes the context's spans.
func (n *Normalizer) Run(ctx context.Context, tc *pipeline.Context) error {
	norm, err := n.Normalize(ctx, tc.Spans)
	if err != nil {
		return err
	}
	tc.Normalized = norm
	return nil
}

// Normalize translates the non-English spans and concatenates everything
// back in order. A span the backend cannot translate is kept in its
// original form and flagged in provenance; classification proceeds on the
// best-effort result. Deadline expiry and cancellation are the only
// errors: a slow backend fails the invocation closed instead of silently
// producing a partial message.
func (n *Normalizer) Normalize(ctx context.Context, spans []message.Span) (*message.NormalizedMessage, error) {
	var text strings.Builder
	provenance := make([]message.TranslatedSpan, 0, len(spans))

	for _, span := range spans {
		if span.Language == message.LangEnglish {
			text.WriteString(span.Text)
			provenance = append(provenance, message.TranslatedSpan{Source: span, Text: span.Text})
			metrics.RecordSpan("english")
			continue
		}

		translated, err := n.backend.Translate(ctx, span.Text)
		switch {
		case err == nil:
			text.WriteString(translated)
			provenance = append(provenance, message.TranslatedSpan{Source: span, Text: translated, Translated: true})
			metrics.RecordSpan("translated")
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			return nil, err
		default:
			// Unsupported span: keep the original text, flag it, continue.
			n.logInfo("span at %d-%d left untranslated: %v", span.Start, span.End, err)
			text.WriteString(span.Text)
			provenance = append(provenance, message.TranslatedSpan{Source: span, Text: span.Text, Passthrough: true})
			metrics.RecordSpan("passthrough")
		}
	}

	return &message.NormalizedMessage{Text: text.String(), Provenance: provenance}, nil
}

func (n *Normalizer) logInfo(format string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Printf("[INFO] [normalizer] "+format, args...)
	}
}
