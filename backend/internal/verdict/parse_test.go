package verdict

import (
	"errors"
	"testing"
)

func TestParseNumberedAnswer(t *testing.T) {
	answer := `1. Classification (required): Suspicious activity detected
2. Category (required): structuring-evasion
3. Explanation (required): The sender splits a $19,600 deposit into two transfers of $9,800 to stay below the reporting threshold.
4. Citation: AML Policy, Section 3.2`

	v, err := Parse(answer)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Classification != Suspicious {
		t.Errorf("Classification = %q", v.Classification)
	}
	if v.Category != "structuring-evasion" {
		t.Errorf("Category = %q", v.Category)
	}
	if v.Citation != "AML Policy, Section 3.2" {
		t.Errorf("Citation = %q", v.Citation)
	}
}

func TestParsePlainAnswer(t *testing.T) {
	answer := `Classification: No suspicious activity detected
Category: None
Explanation: Routine client correspondence with no policy indicators.
Citation: None`

	v, err := Parse(answer)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Classification != NotSuspicious {
		t.Errorf("Classification = %q", v.Classification)
	}
	if v.Category != CategoryNone {
		t.Errorf("Category = %q", v.Category)
	}
	if v.Citation != "" {
		t.Errorf("Citation %q should be cleared when the answer says None", v.Citation)
	}
}

func TestParseResultLabelFallback(t *testing.T) {
	answer := `Result: No suspicious activity detected
Category: None
Explanation: Nothing of concern.`

	v, err := Parse(answer)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Classification != NotSuspicious {
		t.Errorf("Classification = %q", v.Classification)
	}
}

func TestParseCollapsesMultilineValues(t *testing.T) {
	answer := `Classification: Suspicious activity detected
Category: bribery-corruption
Explanation: The sender offers cash
in exchange for loan approval.`

	v, err := Parse(answer)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Explanation != "The sender offers cash in exchange for loan approval." {
		t.Errorf("Explanation = %q, newlines should collapse to spaces", v.Explanation)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{name: "free text", answer: "I think this message looks fine overall."},
		{name: "missing classification", answer: "Category: None\nExplanation: nothing"},
		{name: "unknown classification value", answer: "Classification: probably fine\nCategory: None\nExplanation: x"},
		{name: "contract violation", answer: "Classification: Suspicious activity detected\nCategory: None\nExplanation: x"},
		{name: "empty answer", answer: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.answer); !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformed", tt.answer, err)
			}
		})
	}
}
