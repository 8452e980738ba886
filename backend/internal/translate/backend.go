package translate

import (
	"context"
	"errors"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
)

// ErrUnsupported is returned by a backend that cannot translate a span
// (unknown phrase, unsupported script). The normalizer recovers by passing
// the span through flagged; it never aborts the pipeline.
var ErrUnsupported = errors.New("translate: unsupported span")

// Backend is the capability interface the pipeline depends on. It keeps
// the pipeline agnostic to whether translation is rule-based, ML-based, or
// an external service.
type Backend interface {
	// Name returns the backend identifier
	Name() string

	// DetectLanguage tags a piece of text
	DetectLanguage(ctx context.Context, text string) (message.Language, error)

	// Translate renders text as fluent, meaning-preserving English
	Translate(ctx context.Context, text string) (string, error)
}
