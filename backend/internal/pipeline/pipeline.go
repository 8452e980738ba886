package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/halcyon-labs/comms-triage/backend/internal/metrics"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

// ErrDeadline marks a triage invocation that exceeded its time budget.
// The caller must surface this as a processing error: a timed-out message
// never defaults to a benign verdict.
var ErrDeadline = errors.New("pipeline: time budget exceeded")

// Stage is one step of the triage pipeline. Stages run in priority order
// (lower first) and communicate through the shared Context. A stage error
// aborts the invocation; the pipeline fails closed.
type Stage interface {
	// Name returns the unique identifier for this stage
	Name() string

	// Run executes the stage against the triage context
	Run(ctx context.Context, tc *Context) error

	// Priority returns the execution order (lower = earlier)
	Priority() int
}

// Pipeline runs a message through the ordered stages and enforces the
// output contract on the result.
type Pipeline struct {
	stages []Stage
	budget time.Duration
	logger *log.Logger
}

// New creates a pipeline with the given stages, sorted by priority.
// budget bounds one invocation end to end; zero means no bound.
func New(stages []Stage, budget time.Duration, logger *log.Logger) *Pipeline {
	sorted := make([]Stage, len(stages))
	copy(sorted, stages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Pipeline{stages: sorted, budget: budget, logger: logger}
}

// Triage runs one raw message through every stage and returns the
// validated verdict. Any stage failure, deadline expiry, or output
// contract violation is returned as an error; no partial or default
// verdict is ever produced.
func (p *Pipeline) Triage(ctx context.Context, raw string) (*verdict.Verdict, error) {
	v, _, err := p.TriageContext(ctx, raw)
	return v, err
}

// TriageContext is like Triage but also returns the full stage context for
// audit logging and diagnostics.
func (p *Pipeline) TriageContext(ctx context.Context, raw string) (*verdict.Verdict, *Context, error) {
	start := time.Now()
	metrics.MessagesTotal.Inc()

	if p.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.budget)
		defer cancel()
	}

	tc := NewContext(raw)
	p.logDebug("Triage %s: %d stages", tc.RequestID, len(p.stages))

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			metrics.RecordProcessingError("deadline")
			return nil, tc, fmt.Errorf("%w: before stage %s: %v", ErrDeadline, stage.Name(), err)
		}
		if err := stage.Run(ctx, tc); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				metrics.RecordProcessingError("deadline")
				return nil, tc, fmt.Errorf("%w: in stage %s: %v", ErrDeadline, stage.Name(), err)
			}
			metrics.RecordProcessingError(stage.Name())
			return nil, tc, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}

	v := tc.Verdict()
	if err := v.Validate(); err != nil {
		// Contract violation: reject rather than emit a non-conformant
		// verdict.
		metrics.RecordProcessingError("contract")
		return nil, tc, err
	}

	metrics.RecordVerdict(string(v.Classification), v.Category)
	metrics.LatencyHistogram.Observe(time.Since(start).Seconds())
	p.logDebug("Triage %s: %s / %s in %v", tc.RequestID, v.Classification, v.Category, time.Since(start))
	return v, tc, nil
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

func (p *Pipeline) logDebug(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf("[DEBUG] "+format, args...)
	}
}
