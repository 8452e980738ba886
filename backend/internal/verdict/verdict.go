package verdict

import (
	"errors"
	"fmt"
	"strings"
)

// Classification is the binary triage outcome. The string values are the
// wire format and must not change: downstream consumers match them byte
// for byte.
type Classification string

const (
	Suspicious    Classification = "Suspicious activity detected"
	NotSuspicious Classification = "No suspicious activity detected"
)

// CategoryNone is the category value emitted for benign verdicts.
const CategoryNone = "None"

// ErrMalformed is returned when a verdict violates the output contract.
// A malformed verdict must never be rendered; the caller surfaces a
// processing error instead of guessing a repair.
var ErrMalformed = errors.New("verdict: malformed")

// Verdict is the atomic output of the pipeline: one classification, at
// most one category, and a one-line rationale. Citation is carried for the
// audit trail only; it is not part of the three-line wire format.
type Verdict struct {
	Classification Classification `json:"classification"`
	Category       string         `json:"category"`
	Explanation    string         `json:"explanation"`
	Citation       string         `json:"citation,omitempty"`
}

// Validate enforces the output contract:
//   - classification is one of the two known values
//   - category is "None" if and only if the verdict is benign
//   - explanation is a non-empty single line
func (v *Verdict) Validate() error {
	switch v.Classification {
	case Suspicious:
		if v.Category == "" || v.Category == CategoryNone {
			return fmt.Errorf("%w: suspicious verdict requires a category", ErrMalformed)
		}
	case NotSuspicious:
		if v.Category != CategoryNone {
			return fmt.Errorf("%w: benign verdict must carry category %q, got %q", ErrMalformed, CategoryNone, v.Category)
		}
	default:
		return fmt.Errorf("%w: unknown classification %q", ErrMalformed, v.Classification)
	}

	if strings.TrimSpace(v.Explanation) == "" {
		return fmt.Errorf("%w: explanation must not be empty", ErrMalformed)
	}
	if strings.ContainsAny(v.Explanation, "\r\n") {
		return fmt.Errorf("%w: explanation must be a single line", ErrMalformed)
	}
	if strings.ContainsAny(v.Category, "\r\n") {
		return fmt.Errorf("%w: category must be a single line", ErrMalformed)
	}
	return nil
}

// Format renders the verdict in the fixed three-line grammar:
//
//	Classification: <value>
//	Category: <value>
//	Explanation: <value>
//
// It refuses to render a verdict that fails Validate; the contract is
// enforced here rather than repaired.
func (v *Verdict) Format() (string, error) {
	if err := v.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Classification: %s\nCategory: %s\nExplanation: %s",
		v.Classification, v.Category, v.Explanation), nil
}
