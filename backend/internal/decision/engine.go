package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cedar-policy/cedar-go"
	"github.com/fsnotify/fsnotify"
)

// Outcome is the result of the flagging gate.
type Outcome string

const (
	FLAG  Outcome = "FLAG"
	CLEAR Outcome = "CLEAR"
)

// Signals is the structured input to policy evaluation: the classifier's
// best candidate match reduced to the facts the flagging policy reasons
// about. Strength values are scaled to integer percent for Cedar.
type Signals struct {
	CategoryID             string
	Specificity            int
	LexicalHits            int
	ContextualHits         int
	Strength               float64
	MinStrength            float64
	TaxonomyVersion        string
	TranslationPassthrough bool
}

// Result carries the outcome with the policy that produced it.
type Result struct {
	Outcome  Outcome
	Reason   string
	PolicyID string
}

// defaultPolicies is the built-in flagging policy: a candidate category is
// only flagged when lexical overlap is backed by contextual intent
// indicators and the aggregate strength clears the taxonomy threshold.
// Cedar denies by default, so anything these policies do not permit is
// CLEAR.
const defaultPolicies = `
@id("flag-contextual-intent")
permit (
    principal,
    action == Action::"flag",
    resource
) when {
    context.lexical_hits > 0 &&
    context.contextual_hits > 0 &&
    context.strength >= context.min_strength
};
`

// Engine wraps the Cedar policy engine with hot-reloading support. The
// policy set is swapped atomically; evaluation with no policy set loaded
// is an error, never a silent CLEAR.
type Engine struct {
	policySet     atomic.Pointer[cedar.PolicySet]
	policyVersion atomic.Pointer[string]
	PolicyPath    string

	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	logger     *log.Logger
	reloadLock sync.Mutex
}

// NewEngine creates an Engine. With an empty policyPath the built-in
// flagging policy is used.
func NewEngine(policyPath string, logger *log.Logger) (*Engine, error) {
	e := &Engine{
		PolicyPath: policyPath,
		stopWatch:  make(chan struct{}),
		logger:     logger,
	}
	if err := e.reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// PolicyVersion returns the current policy version (thread-safe).
func (e *Engine) PolicyVersion() string {
	v := e.policyVersion.Load()
	if v == nil {
		return ""
	}
	return *v
}

// reload loads/reloads policies from the file, or the built-in set when no
// path is configured.
func (e *Engine) reload() error {
	var data []byte
	if e.PolicyPath == "" {
		data = []byte(defaultPolicies)
	} else {
		var err error
		data, err = os.ReadFile(e.PolicyPath)
		if err != nil {
			return fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	hash := sha256.Sum256(data)
	version := hex.EncodeToString(hash[:])[:12]

	ps := cedar.NewPolicySet()

	// Split policies by semicolon as a rudimentary parser.
	chunks := strings.Split(string(data), ";")
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		fullPolicy := chunk + ";"

		var policy cedar.Policy
		if err := policy.UnmarshalCedar([]byte(fullPolicy)); err != nil {
			return fmt.Errorf("failed to unmarshal cedar policy part %d: %w", i, err)
		}

		ps.Add(cedar.PolicyID(fmt.Sprintf("policy%d", i)), &policy)
	}

	e.policySet.Store(ps)
	e.policyVersion.Store(&version)
	return nil
}

// Authorize runs the flagging gate over the classifier's candidate
// signals. A missing policy set is an error so callers fail closed.
func (e *Engine) Authorize(sig *Signals) (Result, error) {
	ps := e.policySet.Load()
	if ps == nil {
		return Result{}, fmt.Errorf("decision engine not initialized")
	}

	entities := cedar.EntityMap{
		cedar.NewEntityUID("Message", "current"): cedar.Entity{
			UID: cedar.NewEntityUID("Message", "current"),
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"taxonomy_version": cedar.String(sig.TaxonomyVersion),
			}),
		},
	}

	req := cedar.Request{
		Principal: cedar.NewEntityUID("Desk", "triage"),
		Action:    cedar.NewEntityUID("Action", "flag"),
		Resource:  cedar.NewEntityUID("Message", "current"),
		Context: cedar.NewRecord(cedar.RecordMap{
			"category":                cedar.String(sig.CategoryID),
			"specificity":             cedar.Long(int64(sig.Specificity)),
			"lexical_hits":            cedar.Long(int64(sig.LexicalHits)),
			"contextual_hits":         cedar.Long(int64(sig.ContextualHits)),
			"strength":                cedar.Long(int64(sig.Strength * 100)),
			"min_strength":            cedar.Long(int64(sig.MinStrength * 100)),
			"translation_passthrough": cedar.Boolean(sig.TranslationPassthrough),
		}),
	}

	ok, diagnostics := cedar.Authorize(ps, entities, req)

	var policyID string
	if len(diagnostics.Reasons) > 0 {
		policyID = string(diagnostics.Reasons[0].PolicyID)
	}

	if ok {
		return Result{
			Outcome:  FLAG,
			Reason:   fmt.Sprintf("candidate %s cleared the flagging policy", sig.CategoryID),
			PolicyID: policyID,
		}, nil
	}
	return Result{
		Outcome:  CLEAR,
		Reason:   fmt.Sprintf("no policy permitted flagging candidate %s", sig.CategoryID),
		PolicyID: policyID,
	}, nil
}

// StartHotReload enables fsnotify file watching for policy hot-reloading.
func (e *Engine) StartHotReload() error {
	if e.PolicyPath == "" {
		return fmt.Errorf("hot reload requires a policy file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	e.watcher = watcher

	if err := watcher.Add(e.PolicyPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy file: %w", err)
	}

	go e.watchLoop()
	e.logInfo("Hot-reload enabled for: %s", e.PolicyPath)
	return nil
}

// StopHotReload stops the file watcher.
func (e *Engine) StopHotReload() {
	if e.watcher != nil {
		close(e.stopWatch)
		e.watcher.Close()
	}
}

func (e *Engine) watchLoop() {
	var debounceTimer *time.Timer
	debounce := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					e.reloadLock.Lock()
					defer e.reloadLock.Unlock()

					oldVersion := e.PolicyVersion()
					if err := e.reload(); err != nil {
						e.logError("Hot-reload failed: %v", err)
					} else {
						e.logInfo("Hot-reload: %s -> %s", oldVersion, e.PolicyVersion())
					}
				})
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logError("Watcher error: %v", err)
		case <-e.stopWatch:
			return
		}
	}
}

// logging helpers
func (e *Engine) logInfo(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf("[INFO] [decision] "+format, args...)
	}
}

func (e *Engine) logError(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf("[ERROR] [decision] "+format, args...)
	}
}
