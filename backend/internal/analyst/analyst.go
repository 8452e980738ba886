package analyst

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/halcyon-labs/comms-triage/backend/internal/provider"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// systemPrompt frames the model as a compliance analyst and pins the
// labeled answer format so the response parses deterministically.
const systemPrompt = `You are a compliance analyst at a financial institution reviewing employee communications for policy violations.

You will be given the full text of a message, already translated into English. Review it against these categories of concern:

%s

Respond with EXACTLY these labeled fields and nothing else:

1. Classification (required): "Suspicious activity detected" or "No suspicious activity detected"
2. Category (required): the category id from the list above, or "None" if no suspicious activity was detected
3. Explanation (required): one sentence quoting the specific language that supports your classification
4. Citation: the policy document and section for the category, or "None"

Only flag a message when its language shows intent, not merely vocabulary. If you are unsure, classify it as "No suspicious activity detected".`

// Analyst asks an LLM for a second opinion on a message. It is advisory:
// the deterministic pipeline's verdict stands, the analyst's answer is
// recorded alongside it for the reviewer.
type Analyst struct {
	provider provider.Provider
	model    string
	store    *taxonomy.Store
	logger   *log.Logger
}

// New creates an Analyst backed by the given provider and model.
func New(p provider.Provider, model string, store *taxonomy.Store, logger *log.Logger) *Analyst {
	return &Analyst{provider: p, model: model, store: store, logger: logger}
}

// Review sends the normalized message to the model and parses the labeled
// answer into a verdict. A response that does not fit the output contract
// is an error; the caller decides whether to surface or discard it.
func (a *Analyst) Review(ctx context.Context, text string) (*verdict.Verdict, error) {
	req := &provider.Request{
		Model: a.model,
		Messages: []provider.Message{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, a.categoryList())},
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
		MaxTokens:   512,
	}

	resp, err := a.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyst completion failed: %w", err)
	}

	v, err := verdict.Parse(resp.Content)
	if err != nil {
		a.logError("unparseable analyst answer: %v", err)
		return nil, err
	}

	a.logDebug("analyst verdict: %s / %s (model %s, %d tokens)",
		v.Classification, v.Category, resp.Model, resp.Usage.TotalTokens)
	return v, nil
}

// categoryList renders the active taxonomy for the system prompt.
func (a *Analyst) categoryList() string {
	var b strings.Builder
	for _, def := range a.store.Categories() {
		fmt.Fprintf(&b, "- %s (%s): %s", def.ID, def.Name, def.Description)
		if def.Citation.Document != "" {
			fmt.Fprintf(&b, " [%s, Section %s]", def.Citation.Document, def.Citation.Section)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Analyst) logDebug(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf("[DEBUG] [analyst] "+format, args...)
	}
}

func (a *Analyst) logError(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf("[ERROR] [analyst] "+format, args...)
	}
}
