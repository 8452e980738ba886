package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/halcyon-labs/comms-triage/backend/internal/audit"
	"github.com/halcyon-labs/comms-triage/backend/internal/cache"
	"github.com/halcyon-labs/comms-triage/backend/internal/classify"
	"github.com/halcyon-labs/comms-triage/backend/internal/config"
	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/explain"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/segment"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/translate"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := taxonomy.NewStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := decision.NewEngine("", nil)
	if err != nil {
		t.Fatal(err)
	}
	pipe := pipeline.New([]pipeline.Stage{
		segment.New(nil),
		translate.NewNormalizer(translate.NewPhrasebook(), nil),
		classify.New(store, engine, nil),
		explain.New(nil),
	}, 0, nil)

	cfg := &config.Config{}
	cfg.Server.MaxRequestSize = 1 << 20
	cfg.Metrics.Enabled = false

	return New(Options{
		Config:   cfg,
		Pipeline: pipe,
		Store:    store,
		Engine:   engine,
		Cache:    cache.New(10, time.Minute),
	})
}

func postText(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-text", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, s *Server, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-text", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestAnalyzePlainTextVerdict(t *testing.T) {
	s := newTestServer(t)
	w := postText(t, s, "Split the deposit into three different accounts of $9,800 each. Don't mention this to compliance.")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	lines := strings.Split(w.Body.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("verdict has %d lines, want 3:\n%s", len(lines), w.Body.String())
	}
	if lines[0] != "Classification: Suspicious activity detected" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if lines[1] != "Category: structuring-evasion" {
		t.Errorf("line 2 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "Explanation: ") {
		t.Errorf("line 3 = %q", lines[2])
	}
}

func TestAnalyzeJSONBody(t *testing.T) {
	s := newTestServer(t)
	w := postJSON(t, s, map[string]any{"text": "Lunch at noon works for me."})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "Classification: No suspicious activity detected") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestAnalyzeThreadIsJoined(t *testing.T) {
	s := newTestServer(t)
	w := postJSON(t, s, map[string]any{
		"thread": []string{
			"Can you handle the transfer?",
			"Sure. I'll wire the funds through two separate accounts, don't mention it to the desk.",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Category: structuring-evasion") {
		t.Errorf("thread verdict = %q", w.Body.String())
	}
}

func TestAnalyzeAttachmentsAreInspected(t *testing.T) {
	s := newTestServer(t)
	w := postJSON(t, s, map[string]any{
		"text": "see attached",
		"attachments": []map[string]string{
			{"filename": "note.txt", "content": "Wire the funds and avoid the report. No memo."},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Category: structuring-evasion") {
		t.Errorf("attachment verdict = %q", w.Body.String())
	}
}

func TestAnalyzeRejectsTextAndThreadTogether(t *testing.T) {
	s := newTestServer(t)
	w := postJSON(t, s, map[string]any{"text": "a", "thread": []string{"b"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if resp.Code != "invalid_request" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestAnalyzeRejectsBadJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-text", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAnalyzeRejectsGet(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/analyze-text", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestAnalyzeCacheSecondHit(t *testing.T) {
	s := newTestServer(t)
	msg := "If you approve the loan today, I will pay you ten percent in cash."

	first := postText(t, s, msg)
	second := postText(t, s, msg)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d / %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached verdict differs:\n%s\nvs\n%s", first.Body.String(), second.Body.String())
	}
}

func TestAnalyzeCacheHitIsAudited(t *testing.T) {
	s := newTestServer(t)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	al, err := audit.NewLogger(auditPath)
	if err != nil {
		t.Fatal(err)
	}
	defer al.Close()
	s.audit = al

	msg := "If you approve the loan today, I will pay you ten percent in cash."
	first := postText(t, s, msg)
	second := postText(t, s, msg)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d / %d", first.Code, second.Code)
	}

	firstID := first.Header().Get("X-Triage-Request-ID")
	secondID := second.Header().Get("X-Triage-Request-ID")
	if secondID == "" {
		t.Errorf("cached delivery must carry a request id")
	}
	if secondID == firstID {
		t.Errorf("cached delivery reused request id %q", firstID)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit trail has %d entries, want one per delivery:\n%s", len(lines), data)
	}

	var entry audit.Entry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatal(err)
	}
	if !entry.CacheHit {
		t.Errorf("second entry not marked as cache hit: %s", lines[1])
	}
	if entry.RequestID != secondID {
		t.Errorf("audit request id = %q, header = %q", entry.RequestID, secondID)
	}
	if entry.Category != "bribery-corruption" {
		t.Errorf("cached entry category = %q", entry.Category)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["taxonomy_version"] == "" {
		t.Errorf("status missing taxonomy_version: %v", status)
	}
	stages, ok := status["stages"].([]any)
	if !ok || len(stages) != 4 {
		t.Errorf("stages = %v, want the four pipeline stages", status["stages"])
	}
}
