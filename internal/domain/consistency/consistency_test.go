package consistency_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/handrecon/internal/domain/assemble"
	"github.com/okian/handrecon/internal/domain/consistency"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
	"github.com/okian/handrecon/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func cleanHand() model.HandHistory {
	return model.HandHistory{
		PotSize:    600,
		BoardCards: model.BoardCards{Flop: []string{"2c", "7d", "9s"}},
		Players: []model.Player{
			{Name: "Ivey", HoleCards: "As Kh", IsWinner: true, WinAmount: 600},
			{Name: "Dwan", HoleCards: "Qd Qc"},
		},
		Actions: []model.Action{
			{PlayerName: "Ivey", Street: types.StreetPreflop, ActionType: types.ActionRaise, Amount: 300, SequenceNumber: 1},
			{PlayerName: "Dwan", Street: types.StreetPreflop, ActionType: types.ActionCall, Amount: 300, SequenceNumber: 2},
		},
	}
}

func typesOf(errs []model.HandError) []types.ErrorType {
	out := []types.ErrorType{}
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func TestCheckCleanHand(t *testing.T) {
	Convey("Given a consistent hand", t, func() {
		Convey("Then no errors are reported", func() {
			So(consistency.Check(cleanHand()), ShouldBeEmpty)
		})
	})
}

func TestCheckCards(t *testing.T) {
	Convey("Given a hand with a card on the board and in a hand", t, func() {
		h := cleanHand()
		h.Players[1].HoleCards = "9s Qc"

		errs := consistency.Check(h)

		Convey("Then a critical duplicate is reported naming both places", func() {
			So(typesOf(errs), ShouldResemble, []types.ErrorType{types.ErrDuplicateCard})
			So(errs[0].Severity, ShouldEqual, types.SeverityCritical)
			So(errs[0].Message, ShouldContainSubstring, "flop")
			So(errs[0].Message, ShouldContainSubstring, "Dwan")
			So(errs[0].SuggestedFix, ShouldNotBeEmpty)
		})
	})

	Convey("Given differently cased notations of the same card", t, func() {
		h := cleanHand()
		h.BoardCards.Turn = []string{"as"}

		Convey("Then they are treated as the same card", func() {
			So(typesOf(consistency.Check(h)), ShouldResemble, []types.ErrorType{types.ErrDuplicateCard})
		})
	})

	Convey("Given an unreadable card", t, func() {
		h := cleanHand()
		h.BoardCards.River = []string{"1x"}

		errs := consistency.Check(h)

		Convey("Then a high severity invalid card error is reported", func() {
			So(typesOf(errs), ShouldResemble, []types.ErrorType{types.ErrInvalidCard})
			So(errs[0].Severity, ShouldEqual, types.SeverityHigh)
		})
	})
}

func TestCheckActionOrder(t *testing.T) {
	Convey("Given a player acting after folding", t, func() {
		h := cleanHand()
		h.Actions = append(h.Actions,
			model.Action{PlayerName: "Dwan", Street: types.StreetFlop, ActionType: types.ActionFold, SequenceNumber: 3},
			model.Action{PlayerName: "Dwan", Street: types.StreetTurn, ActionType: types.ActionCheck, SequenceNumber: 4},
		)

		errs := consistency.Check(h)

		Convey("Then the out of turn action is flagged", func() {
			So(typesOf(errs), ShouldResemble, []types.ErrorType{types.ErrInvalidActionOrder})
			So(errs[0].Message, ShouldContainSubstring, "#4")
		})
	})

	Convey("Given a player acting after going all-in", t, func() {
		h := cleanHand()
		h.Actions[0].ActionType = types.ActionAllIn
		h.Actions = append(h.Actions, model.Action{PlayerName: "Ivey", Street: types.StreetFlop, ActionType: types.ActionBet, SequenceNumber: 3})

		Convey("Then it is flagged too", func() {
			So(typesOf(consistency.Check(h)), ShouldResemble, []types.ErrorType{types.ErrInvalidActionOrder})
		})
	})
}

func TestCheckChips(t *testing.T) {
	Convey("Given an award that does not match the pot", t, func() {
		h := cleanHand()
		h.Players[0].WinAmount = 900

		errs := consistency.Check(h)

		Convey("Then a medium pot inconsistency is reported", func() {
			So(typesOf(errs), ShouldResemble, []types.ErrorType{types.ErrPotInconsistency})
			So(errs[0].Severity, ShouldEqual, types.SeverityMedium)
		})
	})

	Convey("Given an award within one percent of the pot", t, func() {
		h := cleanHand()
		h.Players[0].WinAmount = 595

		Convey("Then it is accepted", func() {
			So(consistency.Check(h), ShouldBeEmpty)
		})
	})

	Convey("Given a known stack smaller than the chips committed", t, func() {
		h := cleanHand()
		stack := 250.0
		h.Players[1].StackSize = &stack

		Convey("Then a stack mismatch is reported", func() {
			So(typesOf(consistency.Check(h)), ShouldResemble, []types.ErrorType{types.ErrStackMismatch})
		})
	})
}

func TestEvaluate(t *testing.T) {
	Convey("Given an empty hand", t, func() {
		r := consistency.Evaluate(model.HandHistory{})

		Convey("Then each validator message becomes a critical incomplete_hand error", func() {
			So(r.Validation.IsValid, ShouldBeFalse)
			So(len(r.Errors), ShouldEqual, 4)
			for _, e := range r.Errors {
				So(e.Type, ShouldEqual, types.ErrIncompleteHand)
				So(e.Severity, ShouldEqual, types.SeverityCritical)
			}
			So(r.Errors[3].Message, ShouldEqual, validate.MsgNoWinner)
		})
	})
}

func TestCheckMixedCaseLabels(t *testing.T) {
	Convey("Given extraction output with mixed-case street and action labels", t, func() {
		raw := `[{"actions":[
			{"playerName":"Ivey","street":"Preflop","actionType":"ALL-IN","amount":1000,"frameNumber":10},
			{"playerName":"Dwan","street":"PREFLOP","actionType":"Call","amount":1000,"frameNumber":20},
			{"playerName":"Ivey","street":"flop","actionType":"bet","amount":200,"frameNumber":30}]}]`
		var batches []model.VisionBatchResult
		So(json.Unmarshal([]byte(raw), &batches), ShouldBeNil)

		hand := assemble.Build(batches, model.RunMetadata{})

		Convey("Then positions are still estimated from preflop order", func() {
			So(hand.Players[0].Position, ShouldEqual, types.PositionSB)
			So(hand.Players[1].Position, ShouldEqual, types.PositionBB)
		})

		Convey("Then acting after an all-in is reported", func() {
			errs := consistency.Check(hand)
			So(typesOf(errs), ShouldContain, types.ErrInvalidActionOrder)
			So(errs[0].Message, ShouldContainSubstring, "after all-in")
		})
	})

	Convey("Given an action with a label that names nothing", t, func() {
		h := cleanHand()
		h.Actions[1].ActionType = types.NormalizeActionType("Muck")
		h.Actions[1].Street = types.NormalizeStreet("Fifth")

		errs := consistency.Check(h)

		Convey("Then it is reported as a blocking action error", func() {
			So(errs, ShouldHaveLength, 1)
			So(errs[0].Type, ShouldEqual, types.ErrInvalidActionOrder)
			So(errs[0].Severity, ShouldEqual, types.SeverityHigh)
			So(errs[0].Message, ShouldContainSubstring, `"muck"`)
		})
	})
}
