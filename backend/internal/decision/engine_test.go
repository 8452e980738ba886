package decision

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("", nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestAuthorize(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		signals Signals
		want    Outcome
	}{
		{
			name: "lexical and contextual above threshold flags",
			signals: Signals{
				CategoryID:     "structuring-evasion",
				Specificity:    40,
				LexicalHits:    2,
				ContextualHits: 1,
				Strength:       1.0,
				MinStrength:    0.7,
			},
			want: FLAG,
		},
		{
			name: "exactly at threshold flags",
			signals: Signals{
				CategoryID:     "bribery-corruption",
				LexicalHits:    1,
				ContextualHits: 1,
				Strength:       0.7,
				MinStrength:    0.7,
			},
			want: FLAG,
		},
		{
			name: "lexical only clears",
			signals: Signals{
				CategoryID:  "structuring-evasion",
				LexicalHits: 3,
				Strength:    0.75,
				MinStrength: 0.7,
			},
			want: CLEAR,
		},
		{
			name: "contextual only clears",
			signals: Signals{
				CategoryID:     "rumors-secrets",
				ContextualHits: 2,
				Strength:       1.0,
				MinStrength:    0.7,
			},
			want: CLEAR,
		},
		{
			name: "below threshold clears",
			signals: Signals{
				CategoryID:     "outside-business-activity",
				LexicalHits:    1,
				ContextualHits: 1,
				Strength:       0.5,
				MinStrength:    0.7,
			},
			want: CLEAR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Authorize(&tt.signals)
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Authorize() = %s (%s), want %s", res.Outcome, res.Reason, tt.want)
			}
			if res.Reason == "" {
				t.Errorf("Authorize() must always give a reason")
			}
		})
	}
}

func TestAuthorizeFailsClosedWithoutPolicies(t *testing.T) {
	e := &Engine{}
	if _, err := e.Authorize(&Signals{LexicalHits: 1, ContextualHits: 1, Strength: 1}); err == nil {
		t.Errorf("Authorize() without a policy set must error, not CLEAR silently")
	}
}

func TestPolicyVersion(t *testing.T) {
	e := newTestEngine(t)
	if v := e.PolicyVersion(); len(v) != 12 {
		t.Errorf("PolicyVersion() = %q, want 12-hex content hash", v)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flagging.cedar")
	policy := `
permit (
    principal,
    action == Action::"flag",
    resource
) when {
    context.lexical_hits > 0
};
`
	if err := os.WriteFile(path, []byte(policy), 0644); err != nil {
		t.Fatal(err)
	}

	e, err := NewEngine(path, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	// This relaxed policy flags on lexical hits alone.
	res, err := e.Authorize(&Signals{CategoryID: "x", LexicalHits: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != FLAG {
		t.Errorf("Authorize() = %s, want FLAG under the relaxed policy", res.Outcome)
	}
}

func TestHotReloadWithNilLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flagging.cedar")
	policy := `
permit (
    principal,
    action == Action::"flag",
    resource
) when {
    context.lexical_hits > 0
};
`
	if err := os.WriteFile(path, []byte(policy), 0644); err != nil {
		t.Fatal(err)
	}

	e, err := NewEngine(path, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	// Must not panic without a logger, during setup or in the watch loop.
	if err := e.StartHotReload(); err != nil {
		t.Fatalf("StartHotReload() error = %v", err)
	}
	defer e.StopHotReload()

	oldVersion := e.PolicyVersion()
	relaxed := `
permit (
    principal,
    action == Action::"flag",
    resource
) when {
    context.contextual_hits > 0
};
`
	if err := os.WriteFile(path, []byte(relaxed), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for e.PolicyVersion() == oldVersion {
		if time.Now().After(deadline) {
			t.Fatalf("policy version never changed after rewrite, still %s", oldVersion)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestLoadPolicyFileMissing(t *testing.T) {
	if _, err := NewEngine("/nonexistent/flagging.cedar", nil); err == nil {
		t.Errorf("NewEngine() should fail on a missing policy file")
	}
}

func TestLoadPolicyFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.cedar")
	if err := os.WriteFile(path, []byte("permit everything always"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(path, nil); err == nil {
		t.Errorf("NewEngine() should fail on an unparseable policy")
	}
}
