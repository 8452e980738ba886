package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyon-labs/comms-triage/backend/internal/analyst"
	"github.com/halcyon-labs/comms-triage/backend/internal/audit"
	"github.com/halcyon-labs/comms-triage/backend/internal/cache"
	"github.com/halcyon-labs/comms-triage/backend/internal/config"
	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
)

// Server exposes the triage pipeline over HTTP. Verdicts go out as
// text/plain in the three-line format; every failure goes out as a JSON
// error object so a verdict can never be confused with an error.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    *taxonomy.Store
	engine   *decision.Engine
	cache    *cache.VerdictCache
	audit    *audit.Logger
	analyst  *analyst.Analyst
	logger   *log.Logger
	started  time.Time
}

// Options wires the server's collaborators. Cache, audit, and analyst are
// optional.
type Options struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Store    *taxonomy.Store
	Engine   *decision.Engine
	Cache    *cache.VerdictCache
	Audit    *audit.Logger
	Analyst  *analyst.Analyst
	Logger   *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		cfg:      opts.Config,
		pipeline: opts.Pipeline,
		store:    opts.Store,
		engine:   opts.Engine,
		cache:    opts.Cache,
		audit:    opts.Audit,
		analyst:  opts.Analyst,
		logger:   opts.Logger,
		started:  time.Now(),
	}
}

// errorResponse is the JSON error body. Code distinguishes grammar errors
// from processing failures.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// analyzeRequest is the JSON request body for /v1/analyze-text. Thread
// parts are joined with the thread separator; attachments are appended as
// labeled sections. Text and Thread are mutually exclusive.
type analyzeRequest struct {
	Text        string               `json:"text"`
	Thread      []string             `json:"thread,omitempty"`
	Attachments []message.Attachment `json:"attachments,omitempty"`
}

// Handler returns the HTTP mux for the triage API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyze-text", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.cfg.Metrics.Enabled {
		mux.Handle(s.cfg.Metrics.Endpoint, promhttp.Handler())
	}
	return mux
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.logInfo("Listening on %s", addr)
	return srv.ListenAndServe()
}

// handleAnalyze triages one message. Accepts application/json with an
// analyzeRequest body, or text/plain with the raw message as the body.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "invalid_request", "Only POST is supported", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", "")
		return
	}
	r.Body.Close()

	raw, err := assembleInput(r.Header.Get("Content-Type"), body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", err.Error(), "")
		return
	}

	if s.cache != nil {
		version := s.store.Version()
		key := cache.Key(raw, version)
		if v, ok := s.cache.Get(key); ok {
			out, err := v.Format()
			if err == nil {
				// Cached deliveries still get their own request id and
				// audit line.
				requestID := uuid.New().String()
				if s.audit != nil {
					s.audit.LogCachedVerdict(requestID, v, version, time.Since(start))
				}
				s.logDebug("Cache hit for %s in %v", requestID, time.Since(start))
				s.sendVerdict(w, out, requestID)
				return
			}
		}
	}

	v, tc, err := s.pipeline.TriageContext(r.Context(), raw)
	if err != nil {
		requestID := ""
		if tc != nil {
			requestID = tc.RequestID
		}
		if s.audit != nil {
			s.audit.LogError(requestID, err, time.Since(start))
		}
		status := http.StatusInternalServerError
		code := "processing_error"
		if errors.Is(err, pipeline.ErrDeadline) {
			status = http.StatusGatewayTimeout
			code = "deadline_exceeded"
		}
		s.logError("Triage %s failed: %v", requestID, err)
		s.sendError(w, status, code, err.Error(), requestID)
		return
	}

	out, err := v.Format()
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "processing_error", err.Error(), tc.RequestID)
		return
	}

	if s.cache != nil {
		s.cache.Set(cache.Key(raw, tc.TaxonomyVersion), v)
	}
	if s.audit != nil {
		s.audit.LogVerdict(tc, v, time.Since(start))
	}
	if s.analyst != nil {
		s.secondOpinion(r, tc.RequestID, tc.NormalizedText(), string(v.Classification))
	}

	s.sendVerdict(w, out, tc.RequestID)
	s.logInfo("Triage %s completed in %v", tc.RequestID, time.Since(start))
}

// secondOpinion asks the LLM analyst to review the message and logs any
// disagreement with the deterministic verdict. Advisory only: failures
// are logged, never surfaced.
func (s *Server) secondOpinion(r *http.Request, requestID, text, classification string) {
	av, err := s.analyst.Review(r.Context(), text)
	if err != nil {
		s.logError("Analyst review failed for %s: %v", requestID, err)
		return
	}
	if string(av.Classification) != classification {
		s.logInfo("Analyst disagrees on %s: pipeline=%q analyst=%q (%s)",
			requestID, classification, av.Classification, av.Category)
	}
}

// assembleInput builds the raw triage input from the request body. JSON
// bodies may carry a thread and attachments; anything else is treated as
// the message itself.
func assembleInput(contentType string, body []byte) (string, error) {
	if !strings.HasPrefix(contentType, "application/json") {
		return string(body), nil
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", fmt.Errorf("invalid JSON body: %v", err)
	}
	if req.Text != "" && len(req.Thread) > 0 {
		return "", fmt.Errorf("text and thread are mutually exclusive")
	}

	text := req.Text
	if len(req.Thread) > 0 {
		text = message.JoinThread(req.Thread)
	}
	return message.Assemble(text, req.Attachments), nil
}

func (s *Server) sendVerdict(w http.ResponseWriter, out, requestID string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if requestID != "" {
		w.Header().Set("X-Triage-Request-ID", requestID)
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, msg, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Triage-Request-ID", requestID)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error:     code,
		Code:      code,
		Message:   msg,
		RequestID: requestID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStatus reports the governing versions and runtime state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stages := make([]string, 0)
	for _, st := range s.pipeline.Stages() {
		stages = append(stages, st.Name())
	}

	status := map[string]interface{}{
		"status":           "ok",
		"uptime_sec":       int(time.Since(s.started).Seconds()),
		"taxonomy_version": s.store.Version(),
		"policy_version":   s.engine.PolicyVersion(),
		"stages":           stages,
		"analyst_enabled":  s.analyst != nil,
	}
	if s.cache != nil {
		status["cache"] = s.cache.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) logInfo(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[INFO] [server] "+format, args...)
	}
}

func (s *Server) logError(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[ERROR] [server] "+format, args...)
	}
}

func (s *Server) logDebug(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[DEBUG] [server] "+format, args...)
	}
}
