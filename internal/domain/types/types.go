// Package types contains the enumerations shared across the pipeline.
package types

import (
	"encoding/json"
	"strings"
)

// Street is a betting round.
type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

// Streets lists betting rounds in dealing order.
var Streets = []Street{StreetPreflop, StreetFlop, StreetTurn, StreetRiver, StreetShowdown}

// ParseStreet is case-insensitive and reports whether s is a known street.
func ParseStreet(s string) (Street, bool) {
	st := Street(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Streets {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// NormalizeStreet returns the canonical street for s, or s lower-cased when it
// names no street.
func NormalizeStreet(s string) Street {
	if st, ok := ParseStreet(s); ok {
		return st
	}
	return Street(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether s is a known street.
func (s Street) Valid() bool {
	for _, known := range Streets {
		if s == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON implements json.Unmarshaler. Unknown labels are kept so that
// consistency checks can report them.
func (s *Street) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NormalizeStreet(raw)
	return nil
}

// ActionType is a player action.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"
)

var actionTypes = []ActionType{ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise, ActionAllIn}

// ParseActionType accepts the canonical names in any case plus "allin", "all_in" and "all in".
func ParseActionType(s string) (ActionType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "allin" || v == "all_in" || v == "all in" {
		v = string(ActionAllIn)
	}
	for _, known := range actionTypes {
		if ActionType(v) == known {
			return known, true
		}
	}
	return "", false
}

// NormalizeActionType returns the canonical action for s, or s lower-cased when
// it names no action.
func NormalizeActionType(s string) ActionType {
	if at, ok := ParseActionType(s); ok {
		return at
	}
	return ActionType(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether a is a canonical action.
func (a ActionType) Valid() bool {
	for _, known := range actionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON implements json.Unmarshaler. Unknown labels are kept so that
// consistency checks can report them.
func (a *ActionType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = NormalizeActionType(raw)
	return nil
}

// Position is a seat label relative to the button.
type Position string

const (
	PositionSB      Position = "SB"
	PositionBB      Position = "BB"
	PositionUTG     Position = "UTG"
	PositionMP      Position = "MP"
	PositionCO      Position = "CO"
	PositionBTN     Position = "BTN"
	PositionUnknown Position = "Unknown"
)

// PositionCycle is the six-max seat order starting from the small blind.
var PositionCycle = []Position{PositionSB, PositionBB, PositionUTG, PositionMP, PositionCO, PositionBTN}

// Confidence is the qualitative tier of a name match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Severity grades a hand error.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Blocking reports whether the severity forces another extraction attempt.
func (s Severity) Blocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// ErrorType classifies a hand error.
type ErrorType string

const (
	ErrDuplicateCard      ErrorType = "duplicate_card"
	ErrInvalidCard        ErrorType = "invalid_card"
	ErrPotInconsistency   ErrorType = "pot_inconsistency"
	ErrStackMismatch      ErrorType = "stack_mismatch"
	ErrInvalidActionOrder ErrorType = "invalid_action_order"
	ErrIncompleteHand     ErrorType = "incomplete_hand"
)

// AnalysisStatus is the lifecycle state of an analysis record.
type AnalysisStatus string

const (
	StatusQueued            AnalysisStatus = "queued"
	StatusRunning           AnalysisStatus = "running"
	StatusAccepted          AnalysisStatus = "accepted"
	StatusRetryPending      AnalysisStatus = "retry_pending"
	StatusNeedsManualReview AnalysisStatus = "needs_manual_review"
	StatusFailed            AnalysisStatus = "failed"
)

// Terminal reports whether no further automated work happens in this state.
func (s AnalysisStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusNeedsManualReview, StatusFailed:
		return true
	}
	return false
}
