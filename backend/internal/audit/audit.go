package audit

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/halcyon-labs/comms-triage/backend/internal/message"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// SpanRecord is the provenance of one span as it appears in the audit
// trail: where it sat in the original message and what happened to it.
type SpanRecord struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Language    string `json:"language"`
	Translated  bool   `json:"translated,omitempty"`
	Passthrough bool   `json:"passthrough,omitempty"`
}

// Entry is one triage invocation in the audit trail. Each entry carries
// enough to reconstruct why the verdict was reached: the verdict fields,
// the governing taxonomy and policy versions, and per-span translation
// provenance.
type Entry struct {
	Timestamp       time.Time    `json:"timestamp"`
	RequestID       string       `json:"request_id"`
	Classification  string       `json:"classification"`
	Category        string       `json:"category"`
	Explanation     string       `json:"explanation"`
	Citation        string       `json:"citation,omitempty"`
	TaxonomyVersion string       `json:"taxonomy_version,omitempty"`
	PolicyID        string       `json:"policy_id,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	Spans           []SpanRecord `json:"spans,omitempty"`
	CacheHit        bool         `json:"cache_hit,omitempty"`
	Latency         int64        `json:"latency_ns"`
	Error           string       `json:"error,omitempty"`
}

// Logger writes one JSON line per triage invocation.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	fallback *log.Logger
}

// NewLogger creates an audit logger. With an empty filePath entries go to
// stdout.
func NewLogger(filePath string) (*Logger, error) {
	var file *os.File
	var err error

	if filePath != "" {
		file, err = os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
	} else {
		file = os.Stdout
	}

	return &Logger{
		file:     file,
		encoder:  json.NewEncoder(file),
		fallback: log.New(os.Stderr, "[AUDIT] ", log.LstdFlags),
	}, nil
}

// Log writes one entry.
func (l *Logger) Log(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := l.encoder.Encode(entry); err != nil {
		l.fallback.Printf("Failed to write audit entry: %v, entry: %+v", err, entry)
	}
}

// LogVerdict records a completed triage invocation.
func (l *Logger) LogVerdict(tc *pipeline.Context, v *verdict.Verdict, latency time.Duration) {
	l.Log(Entry{
		Timestamp:       time.Now().UTC(),
		RequestID:       tc.RequestID,
		Classification:  string(v.Classification),
		Category:        v.Category,
		Explanation:     v.Explanation,
		Citation:        v.Citation,
		TaxonomyVersion: tc.TaxonomyVersion,
		PolicyID:        tc.PolicyID,
		Reason:          tc.DecisionReason,
		Spans:           spanRecords(tc.Normalized),
		Latency:         latency.Nanoseconds(),
	})
}

// LogCachedVerdict records a delivery served from the verdict cache. Span
// provenance belongs to the entry of the invocation that produced the
// verdict; the cached delivery still gets its own line.
func (l *Logger) LogCachedVerdict(requestID string, v *verdict.Verdict, taxonomyVersion string, latency time.Duration) {
	l.Log(Entry{
		Timestamp:       time.Now().UTC(),
		RequestID:       requestID,
		Classification:  string(v.Classification),
		Category:        v.Category,
		Explanation:     v.Explanation,
		Citation:        v.Citation,
		TaxonomyVersion: taxonomyVersion,
		CacheHit:        true,
		Latency:         latency.Nanoseconds(),
	})
}

// LogError records a triage invocation that failed before producing a
// verdict.
func (l *Logger) LogError(requestID string, err error, latency time.Duration) {
	l.Log(Entry{
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Error:     err.Error(),
		Latency:   latency.Nanoseconds(),
	})
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && l.file != os.Stdout {
		return l.file.Close()
	}
	return nil
}

func spanRecords(norm *message.NormalizedMessage) []SpanRecord {
	if norm == nil {
		return nil
	}
	records := make([]SpanRecord, 0, len(norm.Provenance))
	for _, ts := range norm.Provenance {
		records = append(records, SpanRecord{
			Start:       ts.Source.Start,
			End:         ts.Source.End,
			Language:    string(ts.Source.Language),
			Translated:  ts.Translated,
			Passthrough: ts.Passthrough,
		})
	}
	return records
}
