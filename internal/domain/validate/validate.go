// Package validate checks the structural completeness of an assembled hand.
package validate

import "github.com/okian/handrecon/internal/domain/model"

// Messages reported by Validate.
const (
	MsgNoPlayers    = "hand has no players"
	MsgNoActions    = "hand has no actions"
	MsgNoBoardCards = "hand has no board cards"
	MsgNoWinner     = "hand has no winner"
)

// Result lists every violated invariant. IsValid is true only when Errors is empty.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate runs all checks without short-circuiting.
func Validate(hand model.HandHistory) Result {
	errs := []string{}
	if len(hand.Players) == 0 {
		errs = append(errs, MsgNoPlayers)
	}
	if len(hand.Actions) == 0 {
		errs = append(errs, MsgNoActions)
	}
	if hand.BoardCards.Len() == 0 {
		errs = append(errs, MsgNoBoardCards)
	}
	if len(hand.Winners()) == 0 {
		errs = append(errs, MsgNoWinner)
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}
