package taxonomy

// Citation points at the policy document passage a category is derived
// from. Suspicious verdicts carry their category's citation into the audit
// trail.
type Citation struct {
	Document string `yaml:"document" json:"document"`
	Section  string `yaml:"section" json:"section"`
}

// CategoryDefinition is one entry of the compliance taxonomy. Lexical
// patterns are the flagged-vocabulary indicators; Contextual patterns are
// the intent indicators (evasion, concealment, inducement) that separate a
// real red flag from routine business language. Both pattern lists hold
// case-insensitive regular expressions.
type CategoryDefinition struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Specificity int      `yaml:"specificity" json:"specificity"`
	Citation    Citation `yaml:"citation" json:"citation"`
	Lexical     []string `yaml:"lexical" json:"lexical"`
	Contextual  []string `yaml:"contextual" json:"contextual"`
}

// Taxonomy is one versioned category set plus its matching policy
// parameters. MinStrength is the threshold a candidate match must clear
// before the decision gate will flag it.
type Taxonomy struct {
	Version     string               `yaml:"version" json:"version"`
	MinStrength float64              `yaml:"min_strength" json:"min_strength"`
	Categories  []CategoryDefinition `yaml:"categories" json:"categories"`
}

// CategoryMatch reports how one category matched a normalized message.
// The hit slices hold the actual matched substrings so the explainer can
// quote the concrete signal that drove the decision.
type CategoryMatch struct {
	Category       CategoryDefinition `json:"category"`
	Strength       float64            `json:"strength"`
	LexicalHits    []string           `json:"lexical_hits,omitempty"`
	ContextualHits []string           `json:"contextual_hits,omitempty"`
}

// HasIntent reports whether the match carries at least one contextual
// intent indicator on top of its lexical overlap. Lexical overlap alone is
// never sufficient to flag a message.
func (m *CategoryMatch) HasIntent() bool {
	return len(m.LexicalHits) > 0 && len(m.ContextualHits) > 0
}
