package explain

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// Explainer is the final pipeline stage. It turns the classifier's
// findings into the single-line, evidence-quoting explanation the verdict
// carries. Every suspicious verdict names the category, quotes the
// matched indicators, and cites the policy document; benign verdicts say
// why nothing was flagged.
type Explainer struct {
	logger *log.Logger
}

// New creates an Explainer.
func New(logger *log.Logger) *Explainer {
	return &Explainer{logger: logger}
}

// Name returns the stage identifier.
func (e *Explainer) Name() string {
	return "explainer"
}

// Priority returns the execution order.
func (e *Explainer) Priority() int {
	return 40
}

// Run fills the explanation field on the context.
func (e *Explainer) Run(ctx context.Context, tc *pipeline.Context) error {
	if tc.Classification == verdict.Suspicious {
		if tc.Candidate == nil {
			return fmt.Errorf("suspicious classification with no candidate match")
		}
		tc.Explanation = suspicious(tc.Candidate)
		return nil
	}
	tc.Explanation = benign(tc)
	return nil
}

// suspicious builds the flagged explanation: category name, the quoted
// lexical and contextual evidence, and the policy citation.
func suspicious(m *taxonomy.CategoryMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The message matches the %s category: it contains %s",
		m.Category.Name, quoteList(m.LexicalHits))
	if len(m.ContextualHits) > 0 {
		fmt.Fprintf(&b, " together with intent indicators %s", quoteList(m.ContextualHits))
	}
	b.WriteString(".")
	if m.Category.Citation.Document != "" {
		fmt.Fprintf(&b, " This pattern is addressed by %s, Section %s.",
			m.Category.Citation.Document, m.Category.Citation.Section)
	}
	return b.String()
}

// benign picks the benign explanation variant matching what the
// classifier actually saw.
func benign(tc *pipeline.Context) string {
	if strings.TrimSpace(tc.NormalizedText()) == "" {
		return "The message contains no content to evaluate; the absence of text is not itself an indicator of suspicious activity."
	}
	if tc.Candidate != nil {
		return fmt.Sprintf("The message was evaluated against the %s category but the combined indicators did not meet the flagging threshold.",
			tc.Candidate.Category.Name)
	}
	for _, m := range tc.Matches {
		if !m.HasIntent() {
			return fmt.Sprintf("The message uses vocabulary associated with the %s category (%s) but carries no contextual indicators of intent, so it does not rise to a reportable concern.",
				m.Category.Name, quoteList(m.LexicalHits))
		}
	}
	return "The message contains no indicators matching any category of concern in the active policy taxonomy."
}

// quoteList renders matched indicator substrings as a quoted,
// comma-separated list.
func quoteList(hits []string) string {
	quoted := make([]string, 0, len(hits))
	for _, h := range hits {
		quoted = append(quoted, fmt.Sprintf("%q", strings.TrimSpace(h)))
	}
	return strings.Join(quoted, ", ")
}
