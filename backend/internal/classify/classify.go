package classify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// Classifier is the pipeline stage that matches the normalized message
// against the policy taxonomy and runs the flagging gate over the ranked
// candidates. Matching vocabulary alone never flags a message; a category
// needs lexical overlap backed by contextual intent indicators, and a
// candidate still has to clear the decision policy.
type Classifier struct {
	store  *taxonomy.Store
	engine *decision.Engine
	logger *log.Logger
}

// New creates a Classifier over the taxonomy store and decision engine.
func New(store *taxonomy.Store, engine *decision.Engine, logger *log.Logger) *Classifier {
	return &Classifier{store: store, engine: engine, logger: logger}
}

// Name returns the stage identifier.
func (c *Classifier) Name() string {
	return "classifier"
}

// Priority returns the execution order.
func (c *Classifier) Priority() int {
	return 30
}

// Run classifies the normalized message and fills the verdict fields on
// the context. Store and policy failures are returned as errors so the
// pipeline fails closed instead of defaulting to a benign verdict.
func (c *Classifier) Run(ctx context.Context, tc *pipeline.Context) error {
	tc.TaxonomyVersion = c.store.Version()

	text := tc.NormalizedText()
	if strings.TrimSpace(text) == "" {
		c.clear(tc, "empty message")
		return nil
	}

	matches, err := c.store.MatchCategories(text)
	if err != nil {
		return fmt.Errorf("taxonomy matching failed: %w", err)
	}
	tc.Matches = matches

	candidates := withIntent(matches)
	if len(candidates) == 0 {
		c.clear(tc, "no category matched with intent")
		return nil
	}

	rank(candidates)

	// Walk the ranked candidates and flag on the first one the policy
	// permits. The ranking picks among flaggable categories; a candidate
	// the gate rejects must not mask a lower-ranked one that clears it.
	var topResult *decision.Result
	for i := range candidates {
		cand := candidates[i]
		sig := &decision.Signals{
			CategoryID:             cand.Category.ID,
			Specificity:            cand.Category.Specificity,
			LexicalHits:            len(cand.LexicalHits),
			ContextualHits:         len(cand.ContextualHits),
			Strength:               cand.Strength,
			MinStrength:            c.store.MinStrength(),
			TaxonomyVersion:        tc.TaxonomyVersion,
			TranslationPassthrough: passthrough(tc.Normalized),
		}

		res, err := c.engine.Authorize(sig)
		if err != nil {
			return fmt.Errorf("flagging gate failed: %w", err)
		}
		if topResult == nil {
			topResult = &res
		}

		if res.Outcome == decision.FLAG {
			tc.Candidate = &cand
			tc.PolicyID = res.PolicyID
			tc.DecisionReason = res.Reason
			tc.Classification = verdict.Suspicious
			tc.Category = cand.Category.ID
			c.logDebug("flagged %s (strength %.2f, %d lexical, %d contextual) [%s]",
				cand.Category.ID, cand.Strength, len(cand.LexicalHits), len(cand.ContextualHits), tc.RequestID)
			return nil
		}
	}

	best := candidates[0]
	tc.Candidate = &best
	tc.PolicyID = topResult.PolicyID
	tc.DecisionReason = topResult.Reason
	tc.Classification = verdict.NotSuspicious
	tc.Category = verdict.CategoryNone
	c.logDebug("cleared candidate %s: %s [%s]", best.Category.ID, topResult.Reason, tc.RequestID)
	return nil
}

func (c *Classifier) clear(tc *pipeline.Context, reason string) {
	tc.Classification = verdict.NotSuspicious
	tc.Category = verdict.CategoryNone
	tc.DecisionReason = reason
	c.logDebug("cleared: %s [%s]", reason, tc.RequestID)
}

// withIntent filters down to the matches carrying at least one contextual
// intent hit.
func withIntent(matches []taxonomy.CategoryMatch) []taxonomy.CategoryMatch {
	out := make([]taxonomy.CategoryMatch, 0, len(matches))
	for _, m := range matches {
		if m.HasIntent() {
			out = append(out, m)
		}
	}
	return out
}

// rank orders candidates by specificity descending, then strength
// descending, then category id ascending so equal candidates resolve
// deterministically.
func rank(candidates []taxonomy.CategoryMatch) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Category.Specificity != b.Category.Specificity {
			return a.Category.Specificity > b.Category.Specificity
		}
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		return a.Category.ID < b.Category.ID
	})
}

func passthrough(norm *message.NormalizedMessage) bool {
	return norm != nil && norm.HasPassthrough()
}

func (c *Classifier) logDebug(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf("[DEBUG] [classifier] "+format, args...)
	}
}
