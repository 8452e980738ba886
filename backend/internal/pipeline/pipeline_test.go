package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/halcyon-labs/comms-triage/backend/internal/classify"
	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/explain"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/segment"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/translate"
	"github.com/halcyon-labs/comms-triage/backend/internal/verdict"
)

func newTestPipeline(t *testing.T, budget time.Duration) *pipeline.Pipeline {
	t.Helper()
	store, err := taxonomy.NewStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := decision.NewEngine("", nil)
	if err != nil {
		t.Fatal(err)
	}
	return pipeline.New([]pipeline.Stage{
		explain.New(nil), // deliberately out of order; New sorts by priority
		classify.New(store, engine, nil),
		translate.NewNormalizer(translate.NewPhrasebook(), nil),
		segment.New(nil),
	}, budget, nil)
}

func TestTriageEndToEnd(t *testing.T) {
	p := newTestPipeline(t, 0)

	tests := []struct {
		name         string
		raw          string
		wantClass    verdict.Classification
		wantCategory string
	}{
		{
			name:         "english benign",
			raw:          "Lunch at noon? The client meeting moved to Thursday.",
			wantClass:    verdict.NotSuspicious,
			wantCategory: verdict.CategoryNone,
		},
		{
			name:         "french benign",
			raw:          "le client a demandé une transaction urgente",
			wantClass:    verdict.NotSuspicious,
			wantCategory: verdict.CategoryNone,
		},
		{
			name:         "english structuring",
			raw:          "Split the deposit into three different accounts of $9,800 each. Don't mention this to compliance.",
			wantClass:    verdict.Suspicious,
			wantCategory: "structuring-evasion",
		},
		{
			name:         "mixed language with translated evasion",
			raw:          "As discussed this morning. veuillez déplacer les fonds pour éviter la détection.",
			wantClass:    verdict.Suspicious,
			wantCategory: "structuring-evasion",
		},
		{
			name:         "spanish bribery",
			raw:          "si aprueba el préstamo hoy, le pagaré el diez por ciento en efectivo",
			wantClass:    verdict.Suspicious,
			wantCategory: "bribery-corruption",
		},
		{
			name:         "empty message",
			raw:          "",
			wantClass:    verdict.NotSuspicious,
			wantCategory: verdict.CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := p.Triage(context.Background(), tt.raw)
			if err != nil {
				t.Fatalf("Triage() error = %v", err)
			}
			if v.Classification != tt.wantClass {
				t.Errorf("Classification = %q, want %q (explanation: %s)", v.Classification, tt.wantClass, v.Explanation)
			}
			if v.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", v.Category, tt.wantCategory)
			}

			// Every verdict renders to exactly three lines.
			out, err := v.Format()
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if lines := strings.Split(out, "\n"); len(lines) != 3 {
				t.Errorf("formatted verdict has %d lines, want 3:\n%s", len(lines), out)
			}
		})
	}
}

func TestTriageIdempotentForEnglish(t *testing.T) {
	p := newTestPipeline(t, 0)
	raw := "Split the deposit into three different accounts. Don't mention this."

	_, tc, err := p.TriageContext(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if tc.Normalized.Text != raw {
		t.Errorf("all-English message must normalize byte-identical:\n got %q\nwant %q", tc.Normalized.Text, raw)
	}
	if tc.Normalized.TranslatedCount() != 0 {
		t.Errorf("all-English message must not be translated")
	}
}

func TestTriageStagesSortedByPriority(t *testing.T) {
	p := newTestPipeline(t, 0)
	names := []string{}
	for _, s := range p.Stages() {
		names = append(names, s.Name())
	}
	want := []string{"segmenter", "normalizer", "classifier", "explainer"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("stage order = %v, want %v", names, want)
		}
	}
}

type stallStage struct{}

func (stallStage) Name() string  { return "stall" }
func (stallStage) Priority() int { return 5 }
func (stallStage) Run(ctx context.Context, _ *pipeline.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return nil
	}
}

func TestTriageDeadlineFailsClosed(t *testing.T) {
	store, err := taxonomy.NewStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := decision.NewEngine("", nil)
	if err != nil {
		t.Fatal(err)
	}
	p := pipeline.New([]pipeline.Stage{
		stallStage{},
		segment.New(nil),
		translate.NewNormalizer(translate.NewPhrasebook(), nil),
		classify.New(store, engine, nil),
		explain.New(nil),
	}, 50*time.Millisecond, nil)

	v, err := p.Triage(context.Background(), "Don't mention the wire of the funds.")
	if v != nil {
		t.Errorf("timed-out triage must not return a verdict, got %+v", v)
	}
	if !errors.Is(err, pipeline.ErrDeadline) {
		t.Errorf("Triage() error = %v, want ErrDeadline", err)
	}
}

type failStage struct{}

func (failStage) Name() string  { return "boom" }
func (failStage) Priority() int { return 5 }
func (failStage) Run(context.Context, *pipeline.Context) error {
	return errors.New("exploded")
}

func TestTriageStageErrorAborts(t *testing.T) {
	p := pipeline.New([]pipeline.Stage{failStage{}, segment.New(nil)}, 0, nil)
	if _, err := p.Triage(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Triage() error = %v, want wrapped stage error", err)
	}
}
