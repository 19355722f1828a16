package refine

import (
	"fmt"
	"strings"

	"github.com/okian/handrecon/internal/domain/model"
)

// Optimization is the prompt and acceptance bar for the next attempt.
type Optimization struct {
	OptimizedPrompt     string   `json:"optimizedPrompt"`
	ConfidenceThreshold float64  `json:"confidenceThreshold"`
	FocusAreas          []string `json:"focusAreas"`
}

const (
	doubleCheck = "Double-check every OCR reading, every card and all pot and stack arithmetic before answering."
	tripleCheck = "Triple-check every value. If you are not certain about a field, leave it blank instead of guessing."
)

// OptimizePrompt appends iteration guidance to base.
func OptimizePrompt(base string, ic model.IterationContext) Optimization {
	focus := IdentifyFocusAreas(ic.PreviousErrors)

	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "\n\n## Iteration %d of %d\n", ic.IterationNumber, MaxIterations)
	fmt.Fprintf(&b, "The previous attempt reported %d error(s)", len(ic.PreviousErrors))
	if ic.IterationNumber > 1 {
		fmt.Fprintf(&b, " with confidence %.2f", ic.PreviousConfidence)
	}
	b.WriteString(".\n")

	if len(focus) > 0 {
		b.WriteString("\n### Focus areas\n")
		for _, f := range focus {
			b.WriteString("- " + f + "\n")
		}
	}

	var fixes []string
	for _, e := range ic.PreviousErrors {
		if e.SuggestedFix != "" {
			fixes = append(fixes, fmt.Sprintf("- [%s] %s: %s", e.Severity, e.Message, e.SuggestedFix))
		}
	}
	if len(fixes) > 0 {
		b.WriteString("\n### Corrections\n")
		b.WriteString(strings.Join(fixes, "\n"))
		b.WriteString("\n")
	}

	switch ic.IterationNumber {
	case 2:
		b.WriteString("\n" + doubleCheck + "\n")
	case 3:
		b.WriteString("\n" + tripleCheck + "\n")
	}

	return Optimization{
		OptimizedPrompt:     b.String(),
		ConfidenceThreshold: ConfidenceThreshold(ic.IterationNumber),
		FocusAreas:          focus,
	}
}
