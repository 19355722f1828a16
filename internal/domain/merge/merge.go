// Package merge combines per-batch vision results of one hand into a single view.
package merge

import (
	"sort"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
)

// Merge unions the batches of one hand.
//
// Actions are ordered by frame number across batches and renumbered 1..N; their
// street and action labels are normalised to canonical case.
// Each street's board is taken from the first batch that reported it, hole cards
// from the last batch that saw the player, and the winner from the last batch
// that reported one. An empty input yields an empty hand with no winner.
func Merge(batches []model.VisionBatchResult) model.MergedHand {
	out := model.MergedHand{
		Actions:    []model.VisionAction{},
		BoardCards: model.BoardCards{Flop: []string{}, Turn: []string{}, River: []string{}},
		HoleCards:  []model.VisionHoleCards{},
	}

	for _, b := range batches {
		out.Actions = append(out.Actions, b.Actions...)
	}
	sort.SliceStable(out.Actions, func(i, j int) bool {
		return out.Actions[i].FrameNumber < out.Actions[j].FrameNumber
	})
	for i := range out.Actions {
		a := &out.Actions[i]
		a.SequenceNumber = i + 1
		a.Street = types.NormalizeStreet(string(a.Street))
		a.ActionType = types.NormalizeActionType(string(a.ActionType))
	}

	out.BoardCards.Flop = firstStreet(batches, func(b model.VisionBoardCards) *model.StreetCards { return b.Flop })
	out.BoardCards.Turn = firstStreet(batches, func(b model.VisionBoardCards) *model.StreetCards { return b.Turn })
	out.BoardCards.River = firstStreet(batches, func(b model.VisionBoardCards) *model.StreetCards { return b.River })

	index := map[string]int{}
	for _, b := range batches {
		for _, hc := range b.HoleCards {
			seen := model.VisionHoleCards{PlayerName: hc.PlayerName, Cards: append([]string(nil), hc.Cards...)}
			if i, ok := index[hc.PlayerName]; ok {
				out.HoleCards[i] = seen
				continue
			}
			index[hc.PlayerName] = len(out.HoleCards)
			out.HoleCards = append(out.HoleCards, seen)
		}
	}

	for i := len(batches) - 1; i >= 0; i-- {
		if w := batches[i].Winner; w != nil {
			cp := *w
			out.Winner = &cp
			break
		}
	}
	return out
}

func firstStreet(batches []model.VisionBatchResult, pick func(model.VisionBoardCards) *model.StreetCards) []string {
	for _, b := range batches {
		if sc := pick(b.BoardCards); !sc.Empty() {
			return append([]string(nil), sc.Cards...)
		}
	}
	return []string{}
}
