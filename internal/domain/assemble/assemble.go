// Package assemble builds the canonical hand history from merged vision batches.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/handrecon/internal/domain/cards"
	"github.com/okian/handrecon/internal/domain/merge"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/namematch"
	"github.com/okian/handrecon/pkg/logger"
)

// Assembler turns batch results into a HandHistory. It holds no per-hand state.
type Assembler struct {
	log          logger.Logger
	matcher      *namematch.Matcher
	describeHand bool
}

// New returns an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{log: logger.Nop(), describeHand: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build assembles a hand with default settings.
func Build(batches []model.VisionBatchResult, meta model.RunMetadata) model.HandHistory {
	return New().Build(context.Background(), batches, meta)
}

// Build merges batches and derives players, pot and description.
func (a *Assembler) Build(ctx context.Context, batches []model.VisionBatchResult, meta model.RunMetadata) model.HandHistory {
	merged := merge.Merge(batches)
	if a.matcher != nil {
		a.resolveNames(&merged)
	}

	hand := model.HandHistory{
		HandNumber: meta.HandNumber,
		BoardCards: merged.BoardCards,
		Players:    []model.Player{},
		Actions:    make([]model.Action, 0, len(merged.Actions)),
		Confidence: meta.Confidence,
		Metadata: model.Metadata{
			FrameCount:         meta.FrameCount,
			OCRAccuracy:        meta.OCRAccuracy,
			VisionBatches:      len(batches),
			ExtractionDuration: meta.ExtractionDuration,
			TotalCost:          meta.TotalCost,
		},
	}

	index := map[string]int{}
	pot := decimal.Zero
	for _, va := range merged.Actions {
		if _, ok := index[va.PlayerName]; !ok {
			index[va.PlayerName] = len(hand.Players)
			hand.Players = append(hand.Players, model.Player{
				Name:     va.PlayerName,
				Position: EstimatePosition(va.PlayerName, merged.Actions),
			})
		}
		pot = pot.Add(decimal.NewFromFloat(va.Amount))
		hand.Actions = append(hand.Actions, model.Action{
			PlayerName:     va.PlayerName,
			Street:         va.Street,
			ActionType:     va.ActionType,
			Amount:         va.Amount,
			SequenceNumber: va.SequenceNumber,
			FrameNumber:    va.FrameNumber,
			Timestamp:      va.Timestamp,
		})
	}
	hand.PotSize, _ = pot.Float64()

	holes := map[string][]string{}
	for _, hc := range merged.HoleCards {
		i, ok := index[hc.PlayerName]
		if !ok {
			a.log.Debug(ctx, "hole cards for unknown player skipped", logger.String("player", hc.PlayerName))
			continue
		}
		hand.Players[i].HoleCards = strings.Join(hc.Cards, " ")
		holes[hc.PlayerName] = hc.Cards
	}

	winnerName := ""
	if w := merged.Winner; w != nil {
		if i, ok := index[w.PlayerName]; ok {
			hand.Players[i].IsWinner = true
			hand.Players[i].WinAmount = w.WinAmount
			winnerName = w.PlayerName
		} else {
			a.log.Warn(ctx, "winner not among acting players, dropped",
				logger.String("winner", w.PlayerName),
				logger.String("hand_number", meta.HandNumber),
				logger.Int("players", len(hand.Players)),
			)
		}
	}

	hand.Description = a.describe(len(hand.Players), hand.BoardCards, winnerName, holes[winnerName])
	return hand
}

func (a *Assembler) describe(players int, board model.BoardCards, winner string, hole []string) string {
	boardText := "none"
	if board.Len() > 0 {
		boardText = strings.Join(board.All(), " ")
	}
	name := winner
	if name == "" {
		name = "Unknown"
	}
	desc := fmt.Sprintf("%d players | Board: %s | Winner: %s", players, boardText, name)

	if a.describeHand && winner != "" && len(hole) > 0 {
		if made, err := cards.Describe(append(append([]string{}, hole...), board.All()...)); err == nil {
			desc += " (" + made + ")"
		}
	}
	return desc
}

func (a *Assembler) resolveNames(m *model.MergedHand) {
	for i := range m.Actions {
		m.Actions[i].PlayerName = a.matcher.Resolve(m.Actions[i].PlayerName)
	}
	// two sightings may now resolve to the same identity; later ones win
	var holes []model.VisionHoleCards
	pos := map[string]int{}
	for _, hc := range m.HoleCards {
		hc.PlayerName = a.matcher.Resolve(hc.PlayerName)
		if i, ok := pos[hc.PlayerName]; ok {
			holes[i] = hc
			continue
		}
		pos[hc.PlayerName] = len(holes)
		holes = append(holes, hc)
	}
	if holes != nil {
		m.HoleCards = holes
	}
	if m.Winner != nil {
		m.Winner.PlayerName = a.matcher.Resolve(m.Winner.PlayerName)
	}
}
