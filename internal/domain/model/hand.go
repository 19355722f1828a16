package model

import "github.com/okian/handrecon/internal/domain/types"

// BoardCards is the resolved community board.
type BoardCards struct {
	Flop  []string `json:"flop"`
	Turn  []string `json:"turn"`
	River []string `json:"river"`
}

// All returns the board in dealing order.
func (b BoardCards) All() []string {
	out := make([]string, 0, len(b.Flop)+len(b.Turn)+len(b.River))
	out = append(out, b.Flop...)
	out = append(out, b.Turn...)
	return append(out, b.River...)
}

// Len is the total number of board cards.
func (b BoardCards) Len() int {
	return len(b.Flop) + len(b.Turn) + len(b.River)
}

// Player is a participant derived from the merged actions.
type Player struct {
	Name     string         `json:"name"`
	Position types.Position `json:"position"`
	// StackSize is nil when no stack reading is bound to the player.
	StackSize *float64 `json:"stackSize"`
	HoleCards string   `json:"holeCards,omitempty"`
	IsWinner  bool     `json:"isWinner"`
	WinAmount float64  `json:"winAmount"`
}

// Action is a merged, sequenced action of the final hand.
type Action struct {
	PlayerName     string           `json:"playerName"`
	Street         types.Street     `json:"street"`
	ActionType     types.ActionType `json:"actionType"`
	Amount         float64          `json:"amount"`
	SequenceNumber int              `json:"sequenceNumber"`
	FrameNumber    int              `json:"frameNumber"`
	Timestamp      float64          `json:"timestamp"`
}

// Metadata describes the extraction run that produced a hand.
type Metadata struct {
	FrameCount         int     `json:"frameCount"`
	OCRAccuracy        float64 `json:"ocrAccuracy"`
	VisionBatches      int     `json:"visionBatches"`
	ExtractionDuration int64   `json:"extractionDuration"` // milliseconds
	TotalCost          float64 `json:"totalCost"`
}

// RunMetadata is the caller-supplied context for building a hand.
type RunMetadata struct {
	HandNumber         string  `json:"handNumber"`
	FrameCount         int     `json:"frameCount"`
	OCRAccuracy        float64 `json:"ocrAccuracy"`
	ExtractionDuration int64   `json:"extractionDuration"`
	TotalCost          float64 `json:"totalCost"`
	Confidence         float64 `json:"confidence"`
}

// HandHistory is the canonical reconstructed hand.
type HandHistory struct {
	HandNumber  string     `json:"handNumber"`
	Description string     `json:"description"`
	PotSize     float64    `json:"potSize"`
	BoardCards  BoardCards `json:"boardCards"`
	Players     []Player   `json:"players"`
	Actions     []Action   `json:"actions"`
	Metadata    Metadata   `json:"metadata"`
	Confidence  float64    `json:"confidence"`
}

// Winners returns the players flagged as winners.
func (h HandHistory) Winners() []Player {
	var out []Player
	for _, p := range h.Players {
		if p.IsWinner {
			out = append(out, p)
		}
	}
	return out
}

// Player looks a participant up by exact name.
func (h HandHistory) Player(name string) (Player, bool) {
	for _, p := range h.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}
