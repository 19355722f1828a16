// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"

	"github.com/okian/handrecon/internal/domain/types"
)

// VisionAction is one player action observed by a single extraction batch.
type VisionAction struct {
	PlayerName     string           `json:"playerName"`
	Street         types.Street     `json:"street"`
	ActionType     types.ActionType `json:"actionType"`
	Amount         float64          `json:"amount"`
	FrameNumber    int              `json:"frameNumber"`
	Timestamp      float64          `json:"timestamp"`
	SequenceNumber int              `json:"sequenceNumber,omitempty"`
}

// StreetCards holds the cards one batch read for a street.
// It decodes from either {"cards": [...]} or a bare array.
type StreetCards struct {
	Cards []string `json:"cards"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StreetCards) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &s.Cards)
	}
	type plain StreetCards
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*s = StreetCards(p)
	return nil
}

// Empty reports whether no cards were read.
func (s *StreetCards) Empty() bool {
	return s == nil || len(s.Cards) == 0
}

// VisionBoardCards is the per-street board read of one batch; absent streets are nil.
type VisionBoardCards struct {
	Flop  *StreetCards `json:"flop,omitempty"`
	Turn  *StreetCards `json:"turn,omitempty"`
	River *StreetCards `json:"river,omitempty"`
}

// VisionHoleCards is one sighting of a player's hole cards.
type VisionHoleCards struct {
	PlayerName string   `json:"playerName"`
	Cards      []string `json:"cards"`
}

// Winner is the award record reported at the end of a hand.
type Winner struct {
	PlayerName string  `json:"playerName"`
	WinAmount  float64 `json:"winAmount"`
}

// VisionBatchResult is the extraction output for one time slice of a hand.
type VisionBatchResult struct {
	Actions    []VisionAction    `json:"actions"`
	BoardCards VisionBoardCards  `json:"boardCards"`
	HoleCards  []VisionHoleCards `json:"holeCards"`
	Winner     *Winner           `json:"winner"`
	// Confidence is the extractor's self-reported confidence in [0,1], if any.
	Confidence *float64 `json:"confidence,omitempty"`
}

// MergedHand is the union of all batches for one hand.
type MergedHand struct {
	Actions    []VisionAction
	BoardCards BoardCards
	HoleCards  []VisionHoleCards
	Winner     *Winner
}
