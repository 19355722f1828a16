package model

import "github.com/okian/handrecon/internal/domain/types"

// HandError is a semantic problem found in an extracted hand.
type HandError struct {
	Type         types.ErrorType `json:"type"`
	Message      string          `json:"message"`
	SuggestedFix string          `json:"suggestedFix,omitempty"`
	Severity     types.Severity  `json:"severity"`
}

// IterationContext carries the previous attempt's outcome into the next one.
type IterationContext struct {
	IterationNumber    int         `json:"iterationNumber"`
	PreviousErrors     []HandError `json:"previousErrors"`
	PreviousConfidence float64     `json:"previousConfidence"`
	HandID             string      `json:"handId"`
}

// Next builds the context for the following attempt.
func (c IterationContext) Next(errs []HandError, confidence float64) IterationContext {
	return IterationContext{
		IterationNumber:    c.IterationNumber + 1,
		PreviousErrors:     append([]HandError(nil), errs...),
		PreviousConfidence: confidence,
		HandID:             c.HandID,
	}
}
