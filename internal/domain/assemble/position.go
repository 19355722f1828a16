package assemble

import (
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
)

// EstimatePosition maps the player's first preflop action index onto the six-max
// cycle SB, BB, UTG, MP, CO, BTN. It assumes preflop order follows seat order,
// which antes and limps can break. Players with no preflop action are Unknown.
func EstimatePosition(playerName string, actions []model.VisionAction) types.Position {
	idx := 0
	for _, a := range actions {
		if a.Street != types.StreetPreflop {
			continue
		}
		if a.PlayerName == playerName {
			return types.PositionCycle[idx%len(types.PositionCycle)]
		}
		idx++
	}
	return types.PositionUnknown
}
