// Package refine decides whether an extraction attempt is accepted, retried with a
// sharper prompt, or handed to a human after the final attempt.
package refine

import (
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
)

// MaxIterations caps extraction attempts per hand.
const MaxIterations = 3

var thresholds = map[int]float64{1: 0.85, 2: 0.90, 3: 0.95}

// ConfidenceThreshold is the acceptance bar for an iteration. It rises with each
// attempt; unknown iterations fall back to the first attempt's bar.
func ConfidenceThreshold(iteration int) float64 {
	if t, ok := thresholds[iteration]; ok {
		return t
	}
	return thresholds[1]
}

var focusGuidance = map[types.ErrorType]string{
	types.ErrDuplicateCard:      "Card uniqueness: each of the 52 cards appears at most once across every player's hole cards and the board.",
	types.ErrInvalidCard:        "Card validity: ranks are A K Q J T 9 8 7 6 5 4 3 2 and suits are s h d c; nothing else is a card.",
	types.ErrPotInconsistency:   "Pot math: pot = SB + BB + Σante + Σbets. Recount every contribution before reporting the pot or winnings.",
	types.ErrStackMismatch:      "Stack deltas: end = start − ante − blind − bets + winnings. Each player's stack must follow this formula.",
	types.ErrInvalidActionOrder: "Action order: a player who folded or went all-in cannot act again in the same hand.",
}

// IdentifyFocusAreas maps the distinct known error types to guidance, in first-seen order.
func IdentifyFocusAreas(errs []model.HandError) []string {
	out := []string{}
	seen := map[types.ErrorType]bool{}
	for _, e := range errs {
		if seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		if g, ok := focusGuidance[e.Type]; ok {
			out = append(out, g)
		}
	}
	return out
}

func blocking(errs []model.HandError) bool {
	for _, e := range errs {
		if e.Severity.Blocking() {
			return true
		}
	}
	return false
}

// ShouldRetry reports whether another attempt should run. Confidence alone does not
// accept a result: any critical or high error forces a retry until the cap.
func ShouldRetry(confidence float64, errs []model.HandError, iteration int) bool {
	if iteration >= MaxIterations {
		return false
	}
	return confidence < ConfidenceThreshold(iteration) || blocking(errs)
}

// Decide returns the state of a hand after an attempt: accepted when it clears the
// iteration's bar without blocking errors, retry_pending while attempts remain, and
// needs_manual_review once they are exhausted.
func Decide(confidence float64, errs []model.HandError, iteration int) types.AnalysisStatus {
	if confidence >= ConfidenceThreshold(iteration) && !blocking(errs) {
		return types.StatusAccepted
	}
	if ShouldRetry(confidence, errs, iteration) {
		return types.StatusRetryPending
	}
	return types.StatusNeedsManualReview
}
