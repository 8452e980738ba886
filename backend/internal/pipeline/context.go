package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// Context carries one message through the triage stages. It is created per
// invocation and discarded once the verdict is produced; no mutable state
// crosses invocations.
type Context struct {
	RequestID  string    `json:"request_id"`
	ReceivedAt time.Time `json:"received_at"`

	// Original message and its staged transformations
	Raw        string                     `json:"raw,omitempty"`
	Spans      []message.Span             `json:"spans,omitempty"`
	Normalized *message.NormalizedMessage `json:"normalized,omitempty"`

	// Classification state
	Matches   []taxonomy.CategoryMatch `json:"matches,omitempty"`
	Candidate *taxonomy.CategoryMatch  `json:"candidate,omitempty"`

	// Verdict fields, filled across the classify and explain stages
	Classification verdict.Classification `json:"classification,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Explanation    string                 `json:"explanation,omitempty"`

	// Governance info for the audit trail
	TaxonomyVersion string `json:"taxonomy_version,omitempty"`
	PolicyID        string `json:"policy_id,omitempty"`
	DecisionReason  string `json:"decision_reason,omitempty"`
}

// NewContext creates a context for one raw message.
func NewContext(raw string) *Context {
	return &Context{
		RequestID:  uuid.New().String(),
		ReceivedAt: time.Now(),
		Raw:        raw,
	}
}

// NormalizedText returns the fully-English text if normalization has run,
// otherwise the raw message.
func (c *Context) NormalizedText() string {
	if c.Normalized != nil {
		return c.Normalized.Text
	}
	return c.Raw
}

// Verdict assembles the verdict from the context fields. Validation
// happens in verdict.Format; this only collects.
func (c *Context) Verdict() *verdict.Verdict {
	v := &verdict.Verdict{
		Classification: c.Classification,
		Category:       c.Category,
		Explanation:    c.Explanation,
	}
	if c.Candidate != nil && c.Classification == verdict.Suspicious {
		cit := c.Candidate.Category.Citation
		if cit.Document != "" {
			v.Citation = "Document: \"" + cit.Document + "\", Section: \"" + cit.Section + "\""
		}
	}
	return v
}
