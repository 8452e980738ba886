package provider

import (
	"context"
	"net/http"
	"time"
)

// Message is a single prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a normalized completion request across providers.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Usage tracks token usage for cost accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is a normalized completion response across providers.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Provider is the interface all LLM backends implement. Complete is a
// blocking external call; implementations must honor ctx so the pipeline's
// time budget can fail the invocation closed.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// Complete sends the request and returns the model's answer
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// BaseProvider provides common functionality for HTTP-backed providers.
type BaseProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBaseProvider creates a new base provider.
func NewBaseProvider(baseURL, apiKey string, timeout time.Duration) *BaseProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BaseProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}
