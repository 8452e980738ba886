package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Store holds the active taxonomy and serves read-only category matching
// to the classifier. The compiled taxonomy is swapped atomically on
// reload, so concurrent triage invocations never see a partially-loaded
// category set.
type Store struct {
	dir      string
	compiled atomic.Pointer[compiledTaxonomy]

	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	reloadLock sync.Mutex
	logger     *log.Logger
}

type compiledTaxonomy struct {
	taxonomy   Taxonomy
	version    string
	categories []compiledCategory
}

type compiledCategory struct {
	def        CategoryDefinition
	lexical    []*regexp.Regexp
	contextual []*regexp.Regexp
}

// Match-strength weights. Contextual intent indicators count double
// because they are what separates a red flag from flagged vocabulary.
const (
	lexicalWeight    = 0.25
	contextualWeight = 0.5
)

// NewStore loads the taxonomy from dir and returns a ready store. If dir
// is empty or holds no taxonomy files, the built-in default taxonomy is
// used.
func NewStore(dir string, logger *log.Logger) (*Store, error) {
	s := &Store{
		dir:       dir,
		stopWatch: make(chan struct{}),
		logger:    logger,
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Version returns the version of the active taxonomy: the declared version
// plus a short content hash, so any edit is observable even without a
// version bump.
func (s *Store) Version() string {
	c := s.compiled.Load()
	if c == nil {
		return ""
	}
	return c.version
}

// MinStrength returns the active matching threshold.
func (s *Store) MinStrength() float64 {
	c := s.compiled.Load()
	if c == nil {
		return 1
	}
	return c.taxonomy.MinStrength
}

// Category returns the definition for an id, if present.
func (s *Store) Category(id string) (CategoryDefinition, bool) {
	c := s.compiled.Load()
	if c == nil {
		return CategoryDefinition{}, false
	}
	for _, cat := range c.categories {
		if cat.def.ID == id {
			return cat.def, true
		}
	}
	return CategoryDefinition{}, false
}

// Categories returns the active category definitions in id order.
func (s *Store) Categories() []CategoryDefinition {
	c := s.compiled.Load()
	if c == nil {
		return nil
	}
	defs := make([]CategoryDefinition, 0, len(c.categories))
	for _, cat := range c.categories {
		defs = append(defs, cat.def)
	}
	return defs
}

// MatchCategories evaluates the normalized text against every category and
// returns the matches in deterministic order (category id ascending). A
// category matches when at least one of its lexical indicators hits; the
// intent requirement is applied by the classifier, not here.
func (s *Store) MatchCategories(text string) ([]CategoryMatch, error) {
	c := s.compiled.Load()
	if c == nil {
		return nil, fmt.Errorf("taxonomy store not initialized")
	}

	var matches []CategoryMatch
	for _, cat := range c.categories {
		lexHits := findHits(cat.lexical, text)
		if len(lexHits) == 0 {
			continue
		}
		ctxHits := findHits(cat.contextual, text)

		strength := lexicalWeight*float64(len(lexHits)) + contextualWeight*float64(len(ctxHits))
		if strength > 1 {
			strength = 1
		}

		matches = append(matches, CategoryMatch{
			Category:       cat.def,
			Strength:       strength,
			LexicalHits:    lexHits,
			ContextualHits: ctxHits,
		})
	}
	return matches, nil
}

// findHits collects the first matched substring of every pattern that
// hits, preserving pattern order so results are deterministic.
func findHits(patterns []*regexp.Regexp, text string) []string {
	var hits []string
	for _, re := range patterns {
		if hit := re.FindString(text); hit != "" {
			hits = append(hits, hit)
		}
	}
	return hits
}

// reload loads taxonomy files from the configured directory, falling back
// to the built-in default when none exist, and atomically swaps the
// compiled set.
func (s *Store) reload() error {
	tax, raw, err := s.loadFiles()
	if err != nil {
		return err
	}

	compiled, err := compile(tax, raw)
	if err != nil {
		return err
	}

	s.compiled.Store(compiled)
	s.logInfo("Loaded taxonomy %s (%d categories)", compiled.version, len(compiled.categories))
	return nil
}

// loadFiles reads every *.yaml / *.yml file in the taxonomy directory and
// merges their categories into one set. Returns the raw bytes for version
// hashing.
func (s *Store) loadFiles() (Taxonomy, []byte, error) {
	if s.dir == "" {
		return DefaultTaxonomy(), nil, nil
	}
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		s.logInfo("Taxonomy directory does not exist: %s, using built-in taxonomy", s.dir)
		return DefaultTaxonomy(), nil, nil
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return Taxonomy{}, nil, fmt.Errorf("failed to list taxonomy files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(s.dir, "*.yml"))
	if err != nil {
		return Taxonomy{}, nil, fmt.Errorf("failed to list taxonomy files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	if len(files) == 0 {
		s.logInfo("No taxonomy files found in %s, using built-in taxonomy", s.dir)
		return DefaultTaxonomy(), nil, nil
	}

	var merged Taxonomy
	var raw []byte
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return Taxonomy{}, nil, fmt.Errorf("failed to read taxonomy file %s: %w", file, err)
		}
		raw = append(raw, data...)

		var tax Taxonomy
		if err := yaml.Unmarshal(data, &tax); err != nil {
			return Taxonomy{}, nil, fmt.Errorf("failed to parse taxonomy file %s: %w", file, err)
		}

		if tax.Version != "" {
			merged.Version = tax.Version
		}
		if tax.MinStrength > 0 {
			merged.MinStrength = tax.MinStrength
		}
		merged.Categories = append(merged.Categories, tax.Categories...)
	}

	if merged.Version == "" {
		merged.Version = "unversioned"
	}
	if merged.MinStrength == 0 {
		merged.MinStrength = defaultMinStrength
	}
	return merged, raw, nil
}

// compile validates the taxonomy, compiles indicator patterns, and
// computes the content version hash.
func compile(tax Taxonomy, raw []byte) (*compiledTaxonomy, error) {
	if len(tax.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	seen := make(map[string]bool, len(tax.Categories))
	categories := make([]compiledCategory, 0, len(tax.Categories))
	for _, def := range tax.Categories {
		if def.ID == "" {
			return nil, fmt.Errorf("taxonomy category without id")
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("duplicate taxonomy category id %q", def.ID)
		}
		seen[def.ID] = true

		lex, err := compilePatterns(def.Lexical)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", def.ID, err)
		}
		ctx, err := compilePatterns(def.Contextual)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", def.ID, err)
		}
		categories = append(categories, compiledCategory{def: def, lexical: lex, contextual: ctx})
	}

	// Deterministic evaluation and reporting order.
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].def.ID < categories[j].def.ID
	})

	if raw == nil {
		raw = []byte(defaultTaxonomyFingerprint)
	}
	hash := sha256.Sum256(raw)
	version := fmt.Sprintf("%s+%s", tax.Version, hex.EncodeToString(hash[:])[:12])

	return &compiledTaxonomy{taxonomy: tax, version: version, categories: categories}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid indicator pattern %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// StartHotReload watches the taxonomy directory and reloads on changes.
// Debounced so rapid editor saves trigger one reload.
func (s *Store) StartHotReload() error {
	if s.dir == "" {
		return fmt.Errorf("hot reload requires a taxonomy directory")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	s.watcher = watcher

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch taxonomy directory: %w", err)
	}

	go s.watchLoop()
	s.logInfo("Hot-reload enabled for: %s", s.dir)
	return nil
}

// StopHotReload stops the directory watcher.
func (s *Store) StopHotReload() {
	if s.watcher != nil {
		close(s.stopWatch)
		s.watcher.Close()
	}
}

func (s *Store) watchLoop() {
	var debounceTimer *time.Timer
	debounce := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					s.reloadLock.Lock()
					defer s.reloadLock.Unlock()

					oldVersion := s.Version()
					if err := s.reload(); err != nil {
						s.logError("Hot-reload failed, keeping taxonomy %s: %v", oldVersion, err)
					} else {
						s.logInfo("Hot-reload: %s -> %s", oldVersion, s.Version())
					}
				})
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logError("Watcher error: %v", err)
		case <-s.stopWatch:
			return
		}
	}
}

// logging helpers
func (s *Store) logInfo(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[INFO] [taxonomy] "+format, args...)
	}
}

func (s *Store) logError(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf("[ERROR] [taxonomy] "+format, args...)
	}
}
