package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIComplete(t *testing.T) {
	var gotAuth string
	var gotReq OpenAIChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(OpenAIChatResponse{
			Model: "test-model",
			Choices: []OpenAIChatChoice{
				{Message: OpenAIChatMessage{Role: "assistant", Content: "Classification: No suspicious activity detected"}},
			},
			Usage: OpenAIUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "secret", 5*time.Second)
	resp, err := p.Complete(context.Background(), &Request{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hello" {
		t.Errorf("forwarded request = %+v", gotReq)
	}
	if !strings.Contains(resp.Content, "No suspicious activity") {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(OpenAIChatResponse{Model: "m"})
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewOpenAIProvider(srv.URL, "", 5*time.Second)
			if _, err := p.Complete(context.Background(), &Request{Model: "m"}); err == nil {
				t.Errorf("Complete() should error")
			}
		})
	}
}

func TestOpenAICompleteHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection
		// read; without it the client disconnect is never detected and
		// srv.Close() blocks on this handler forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.Complete(ctx, &Request{Model: "m"}); err == nil {
		t.Errorf("Complete() should fail when the context expires")
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req OllamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Errorf("stream must be disabled")
		}

		json.NewEncoder(w).Encode(OllamaChatResponse{
			Model:           "local-model",
			Message:         OllamaChatMessage{Role: "assistant", Content: "ok"},
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, 5*time.Second)
	resp, err := p.Complete(context.Background(), &Request{
		Model:       "local-model",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestFakeProviderEchoes(t *testing.T) {
	p := &FakeProvider{}
	resp, err := p.Complete(context.Background(), &Request{
		Model:    "m",
		Messages: []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "last"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "last" {
		t.Errorf("Content = %q, want the last message echoed", resp.Content)
	}
}
