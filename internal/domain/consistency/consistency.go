// Package consistency finds semantic errors in an assembled hand: impossible cards,
// out-of-turn actions and chip arithmetic that does not add up.
package consistency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/handrecon/internal/domain/cards"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
	"github.com/okian/handrecon/internal/domain/validate"
)

// potTolerance is the relative gap allowed between the pot and the amount awarded.
const potTolerance = 0.01

// Report combines structural validation with the semantic checks.
type Report struct {
	Validation validate.Result   `json:"validation"`
	Errors     []model.HandError `json:"errors"`
}

// Evaluate validates hand and runs every check.
func Evaluate(hand model.HandHistory) Report {
	v := validate.Validate(hand)
	errs := FromValidation(v)
	errs = append(errs, Check(hand)...)
	return Report{Validation: v, Errors: errs}
}

// FromValidation turns validator messages into critical incomplete_hand errors.
func FromValidation(r validate.Result) []model.HandError {
	out := make([]model.HandError, 0, len(r.Errors))
	for _, msg := range r.Errors {
		out = append(out, model.HandError{
			Type:     types.ErrIncompleteHand,
			Message:  msg,
			Severity: types.SeverityCritical,
		})
	}
	return out
}

// Check runs the card, action label, action order, pot and stack checks.
func Check(hand model.HandHistory) []model.HandError {
	errs := []model.HandError{}
	errs = append(errs, checkCards(hand)...)
	errs = append(errs, checkActionLabels(hand.Actions)...)
	errs = append(errs, checkActionOrder(hand.Actions)...)
	errs = append(errs, checkPot(hand)...)
	errs = append(errs, checkStacks(hand)...)
	return errs
}

type sighting struct {
	where string
	text  string
}

func checkCards(hand model.HandHistory) []model.HandError {
	var all []sighting
	for _, c := range hand.BoardCards.Flop {
		all = append(all, sighting{"flop", c})
	}
	for _, c := range hand.BoardCards.Turn {
		all = append(all, sighting{"turn", c})
	}
	for _, c := range hand.BoardCards.River {
		all = append(all, sighting{"river", c})
	}
	for _, p := range hand.Players {
		for _, c := range strings.Fields(p.HoleCards) {
			all = append(all, sighting{p.Name + "'s hole cards", c})
		}
	}

	var errs []model.HandError
	first := map[string]string{}
	for _, s := range all {
		c, err := cards.Parse(s.text)
		if err != nil {
			errs = append(errs, model.HandError{
				Type:         types.ErrInvalidCard,
				Message:      fmt.Sprintf("%q in %s is not a valid card", s.text, s.where),
				SuggestedFix: fmt.Sprintf("re-read the card in %s; ranks are A K Q J T 9-2 and suits s h d c", s.where),
				Severity:     types.SeverityHigh,
			})
			continue
		}
		key := c.String()
		if prev, ok := first[key]; ok {
			errs = append(errs, model.HandError{
				Type:         types.ErrDuplicateCard,
				Message:      fmt.Sprintf("%s appears in both %s and %s", key, prev, s.where),
				SuggestedFix: fmt.Sprintf("only one of %s or %s can hold %s; re-read both", prev, s.where, key),
				Severity:     types.SeverityCritical,
			})
			continue
		}
		first[key] = s.where
	}
	return errs
}

func checkActionLabels(actions []model.Action) []model.HandError {
	var errs []model.HandError
	for _, a := range actions {
		if a.Street.Valid() && a.ActionType.Valid() {
			continue
		}
		errs = append(errs, model.HandError{
			Type: types.ErrInvalidActionOrder,
			Message: fmt.Sprintf("%s action #%d has unrecognised street %q or action %q",
				a.PlayerName, a.SequenceNumber, a.Street, a.ActionType),
			SuggestedFix: "label streets preflop, flop, turn, river or showdown and actions fold, check, call, bet, raise or all-in",
			Severity:     types.SeverityHigh,
		})
	}
	return errs
}

func checkActionOrder(actions []model.Action) []model.HandError {
	var errs []model.HandError
	done := map[string]types.ActionType{}
	for _, a := range actions {
		if last, ok := done[a.PlayerName]; ok {
			errs = append(errs, model.HandError{
				Type: types.ErrInvalidActionOrder,
				Message: fmt.Sprintf("%s acts (%s on %s, #%d) after %s",
					a.PlayerName, a.ActionType, a.Street, a.SequenceNumber, last),
				SuggestedFix: fmt.Sprintf("check whether %s really acted at sequence %d", a.PlayerName, a.SequenceNumber),
				Severity:     types.SeverityHigh,
			})
			continue
		}
		if a.ActionType == types.ActionFold || a.ActionType == types.ActionAllIn {
			done[a.PlayerName] = a.ActionType
		}
	}
	return errs
}

func checkPot(hand model.HandHistory) []model.HandError {
	winners := hand.Winners()
	if len(winners) == 0 || hand.PotSize <= 0 {
		return nil
	}
	awarded := decimal.Zero
	for _, w := range winners {
		awarded = awarded.Add(decimal.NewFromFloat(w.WinAmount))
	}
	pot := decimal.NewFromFloat(hand.PotSize)
	gap, _ := awarded.Sub(pot).Abs().Float64()
	if gap <= hand.PotSize*potTolerance {
		return nil
	}
	return []model.HandError{{
		Type:         types.ErrPotInconsistency,
		Message:      fmt.Sprintf("awarded %s but actions sum to %s", awarded.String(), pot.String()),
		SuggestedFix: "recount blinds, antes and every bet, call and raise amount",
		Severity:     types.SeverityMedium,
	}}
}

func checkStacks(hand model.HandHistory) []model.HandError {
	committed := map[string]decimal.Decimal{}
	for _, a := range hand.Actions {
		committed[a.PlayerName] = committed[a.PlayerName].Add(decimal.NewFromFloat(a.Amount))
	}
	var errs []model.HandError
	for _, p := range hand.Players {
		if p.StackSize == nil {
			continue
		}
		stack := decimal.NewFromFloat(*p.StackSize)
		if c := committed[p.Name]; c.GreaterThan(stack) {
			errs = append(errs, model.HandError{
				Type:         types.ErrStackMismatch,
				Message:      fmt.Sprintf("%s committed %s with a stack of %s", p.Name, c.String(), stack.String()),
				SuggestedFix: fmt.Sprintf("re-read %s's stack and bet amounts", p.Name),
				Severity:     types.SeverityMedium,
			})
		}
	}
	return errs
}
