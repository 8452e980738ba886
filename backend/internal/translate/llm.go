package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/provider"
)

const translatePrompt = `You are a professional translator for a financial institution's compliance desk.
Translate the following text into fluent, accurate English. Preserve named entities, amounts,
dates, urgency, and idiomatic meaning; do not translate word-for-word if that loses meaning.
Return ONLY the translation, with no commentary.

Text:
%s`

const detectPrompt = `Answer with exactly one word, "english" or "other": is the following text written in English?

Text:
%s`

// LLMBackend translates spans through an LLM provider. The provider call
// is a blocking external call; it inherits the pipeline's deadline through
// ctx.
type LLMBackend struct {
	provider provider.Provider
	model    string
}

// NewLLMBackend creates an LLM-backed translator.
func NewLLMBackend(p provider.Provider, model string) *LLMBackend {
	return &LLMBackend{provider: p, model: model}
}

// Name returns the backend identifier.
func (b *LLMBackend) Name() string {
	return "llm:" + b.provider.Name()
}

// DetectLanguage asks the model whether the text is English.
func (b *LLMBackend) DetectLanguage(ctx context.Context, text string) (message.Language, error) {
	resp, err := b.provider.Complete(ctx, &provider.Request{
		Model:       b.model,
		Temperature: 0.0,
		Messages: []provider.Message{
			{Role: "user", Content: fmt.Sprintf(detectPrompt, text)},
		},
	})
	if err != nil {
		return message.LangEnglish, err
	}
	if strings.Contains(strings.ToLower(resp.Content), "other") {
		return message.LangOther, nil
	}
	return message.LangEnglish, nil
}

// Translate renders the text as English through the provider.
func (b *LLMBackend) Translate(ctx context.Context, text string) (string, error) {
	resp, err := b.provider.Complete(ctx, &provider.Request{
		Model:       b.model,
		Temperature: 0.1, // low temperature for faithful translation
		Messages: []provider.Message{
			{Role: "user", Content: fmt.Sprintf(translatePrompt, text)},
		},
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", ErrUnsupported
	}
	return out, nil
}
