package verdict

import (
	"fmt"
	"regexp"
	"strings"
)

// Labeled answers arrive in one of two shapes:
//
//	1. Classification: ... 2. Category: ... 3. Explanation: ...
//
// or newline-separated:
//
//	Classification: ...
//	Category: ...
//	Explanation: ...
//
// Numbered labels are tried first; the plain form is the fallback.
var (
	numberedLabel = regexp.MustCompile(`\d+\.\s*([A-Za-z][A-Za-z ]*?)\s*(?:\(required\))?:\s*`)
	plainLabel    = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z ]*?)\s*(?:\(required\))?:\s*`)
)

// Parse extracts a Verdict from a labeled answer, tolerating the numbered
// and plain label formats and an optional trailing Citation field. The
// parsed verdict is validated before being returned; an answer that cannot
// be mapped onto the output contract is an error, never a guessed verdict.
func Parse(answer string) (*Verdict, error) {
	fields := parseFields(answer)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no labeled fields in answer", ErrMalformed)
	}

	rawClass, ok := fields["classification"]
	if !ok {
		// Older answers labeled the first field "Result".
		rawClass, ok = fields["result"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: answer is missing the Classification field", ErrMalformed)
	}

	v := &Verdict{
		Explanation: singleLine(fields["explanation"]),
		Citation:    singleLine(fields["citation"]),
	}

	switch {
	case strings.Contains(strings.ToLower(rawClass), "no suspicious"):
		v.Classification = NotSuspicious
	case strings.Contains(strings.ToLower(rawClass), "suspicious"):
		v.Classification = Suspicious
	default:
		return nil, fmt.Errorf("%w: unrecognized classification %q", ErrMalformed, rawClass)
	}

	category := strings.Trim(singleLine(fields["category"]), `"'`)
	if category == "" || strings.EqualFold(category, CategoryNone) {
		category = CategoryNone
	}
	v.Category = category

	if strings.EqualFold(v.Citation, CategoryNone) {
		v.Citation = ""
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// parseFields slices the answer into label/value pairs. Values run from the
// end of one label to the start of the next; keys are lowercased with
// spaces collapsed to underscores.
func parseFields(answer string) map[string]string {
	locs := numberedLabel.FindAllStringSubmatchIndex(answer, -1)
	if len(locs) == 0 {
		locs = plainLabel.FindAllStringSubmatchIndex(answer, -1)
	}

	fields := make(map[string]string, len(locs))
	for i, loc := range locs {
		key := strings.ToLower(strings.TrimSpace(answer[loc[2]:loc[3]]))
		key = strings.ReplaceAll(key, " ", "_")

		end := len(answer)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		fields[key] = strings.Trim(strings.TrimSpace(answer[loc[1]:end]), `“”`)
	}
	return fields
}

// singleLine collapses all whitespace runs, including newlines, to single
// spaces so the value fits the one-value-per-line wire grammar.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
