package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
	"github.com/okian/handrecon/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()

	Convey("Given inline batch results for a new analysis", t, func() {
		pub := &recordingPublisher{}
		svc := service.New(service.WithPublisher(pub))

		a, err := svc.Ingest(ctx, "an-1", service.IngestRequest{
			HandID:     "hand-1",
			Batches:    headsUp(0.9),
			Confidence: 0.9,
			Iteration:  1,
			Metadata:   model.RunMetadata{HandNumber: "42"},
		})

		Convey("Then the hand is built, decided and stored", func() {
			So(err, ShouldBeNil)
			So(a.Status, ShouldEqual, types.StatusAccepted)
			So(a.HandID, ShouldEqual, "hand-1")
			So(a.AIExtractedData.HandNumber, ShouldEqual, "42")
			So(a.AIExtractedData.Confidence, ShouldEqual, 0.9)

			stored, err := svc.Get(ctx, "an-1")
			So(err, ShouldBeNil)
			So(stored.Status, ShouldEqual, types.StatusAccepted)
			So(len(pub.published()), ShouldEqual, 1)
		})

		Convey("When a later low-confidence result arrives on the last iteration", func() {
			again, err := svc.Ingest(ctx, "an-1", service.IngestRequest{
				Batches:    headsUp(0.5),
				Confidence: 0.5,
				Iteration:  7,
			})

			Convey("Then the record is updated and queued for review", func() {
				So(err, ShouldBeNil)
				So(again.Iteration, ShouldEqual, 3)
				So(again.Status, ShouldEqual, types.StatusNeedsManualReview)
				So(again.AIExtractedData.HandNumber, ShouldEqual, "42")

				reviews, _ := svc.Reviews(ctx, 5)
				So(len(reviews), ShouldEqual, 1)
				So(reviews[0].HandID, ShouldEqual, "hand-1")
			})
		})
	})

	Convey("Given a hand whose winner was never seen", t, func() {
		svc := service.New()
		batches := headsUp(0.99)
		batches[1].Winner = &model.Winner{PlayerName: "Hellmuth", WinAmount: 600}

		a, err := svc.Ingest(ctx, "an-2", service.IngestRequest{Batches: batches, Confidence: 0.99, Iteration: 1})

		Convey("Then high confidence alone does not accept it", func() {
			So(err, ShouldBeNil)
			So(a.Status, ShouldEqual, types.StatusRetryPending)
			So(a.ValidationErrors, ShouldContain, validate.MsgNoWinner)
			So(a.FocusAreas, ShouldBeEmpty)
			So(a.Errors[0].Type, ShouldEqual, types.ErrIncompleteHand)
		})
	})

	Convey("Given results stored under a prefix", t, func() {
		src := fakeSource{batches: map[string][]model.VisionBatchResult{"hands/h9/": headsUp(0.9)}}

		Convey("When a batch source is configured", func() {
			svc := service.New(service.WithBatchSource(src))
			a, err := svc.Ingest(ctx, "an-9", service.IngestRequest{Prefix: "hands/h9/", Confidence: 0.92})
			So(err, ShouldBeNil)
			So(a.Status, ShouldEqual, types.StatusAccepted)
			So(a.Iteration, ShouldEqual, 1)
			So(a.HandID, ShouldEqual, "an-9")
		})

		Convey("When no batch source is configured", func() {
			svc := service.New()
			_, err := svc.Ingest(ctx, "an-9", service.IngestRequest{Prefix: "hands/h9/"})
			So(errors.Is(err, service.ErrNoBatchSource), ShouldBeTrue)
		})

		Convey("When neither batches nor prefix are given", func() {
			svc := service.New(service.WithBatchSource(src))
			_, err := svc.Ingest(ctx, "an-9", service.IngestRequest{})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Tools(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a seeded roster", t, func() {
		svc := service.New(
			service.WithRoster([]string{"Daniel Negreanu", "Phil Ivey", "phil ivey", "Tom Dwan"}),
			service.WithExtractor(newScripted(0.9)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then duplicate roster names are seeded once", func() {
			roster, err := svc.Roster(ctx)
			So(err, ShouldBeNil)
			So(len(roster), ShouldEqual, 3)
		})

		Convey("When a misspelt name is matched against the roster", func() {
			res, err := svc.MatchPlayer(ctx, service.MatchRequest{Name: "Daniel Negranu"})

			Convey("Then the roster identity is the best match", func() {
				So(err, ShouldBeNil)
				So(res.Best, ShouldNotBeNil)
				So(res.Best.Name, ShouldEqual, "Daniel Negreanu")
				So(res.Best.Confidence, ShouldEqual, types.ConfidenceHigh)
				So(res.Matches[0].Name, ShouldEqual, "Daniel Negreanu")
			})
		})

		Convey("When explicit candidates and a threshold are given", func() {
			threshold := 60
			res, err := svc.MatchPlayer(ctx, service.MatchRequest{
				Name:       "Phil",
				Candidates: []string{"Phil Hellmuth", "Phill", "Phil Ivey"},
				Threshold:  &threshold,
				TopN:       3,
			})

			Convey("Then the candidates are ranked instead of the roster", func() {
				So(err, ShouldBeNil)
				So(res.Best.Name, ShouldEqual, "Phill")
				So(len(res.Matches), ShouldEqual, 2)
				So(res.Matches[1].Name, ShouldEqual, "Phil Ivey")
			})
		})

		Convey("When a batch is built with a misspelt player", func() {
			batches := headsUp(0.9)
			batches[0].Actions[0].PlayerName = "Phil Ivy"
			batches[0].HoleCards[0].PlayerName = "Phil Ivy"
			batches[1].Winner.PlayerName = "Phil Ivy"
			hand := svc.BuildHand(ctx, batches, model.RunMetadata{HandNumber: "7"})

			Convey("Then the name is resolved to the roster", func() {
				So(hand.Players[0].Name, ShouldEqual, "Phil Ivey")
				So(hand.Players[0].IsWinner, ShouldBeTrue)
			})
		})

		Convey("When bad match input is given", func() {
			_, err := svc.MatchPlayer(ctx, service.MatchRequest{})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			bad := 101
			_, err = svc.MatchPlayer(ctx, service.MatchRequest{Name: "x", Threshold: &bad})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given the stateless helpers", t, func() {
		svc := service.New()

		Convey("ValidateHand reports every structural problem", func() {
			report := svc.ValidateHand(ctx, model.HandHistory{})
			So(report.Validation.IsValid, ShouldBeFalse)
			So(len(report.Validation.Errors), ShouldEqual, 4)
			So(len(report.Errors), ShouldEqual, 4)
		})

		Convey("Optimize clamps the iteration", func() {
			opt := svc.Optimize(ctx, "base", model.IterationContext{})
			So(opt.OptimizedPrompt, ShouldStartWith, "base")
			So(opt.OptimizedPrompt, ShouldContainSubstring, "## Iteration 1 of 3")
			So(opt.ConfidenceThreshold, ShouldEqual, 0.85)
		})

		Convey("ParseOCR reads players and board", func() {
			res := svc.ParseOCR(ctx, service.OCRRequest{
				Players: []string{"A♠ K♥ $1,500", ""},
				Board:   "Pot: $300 Q♦ J♣ T♠",
			})
			So(len(res.Players), ShouldEqual, 2)
			So(res.Players[0].Cards, ShouldResemble, []string{"as", "kh"})
			So(*res.Players[0].Stack, ShouldEqual, 1500)
			So(res.Players[1].Stack, ShouldBeNil)
			So(*res.Board.Pot, ShouldEqual, 300)
			So(res.Board.Cards, ShouldResemble, []string{"qd", "jc", "ts"})
			So(res.Accuracy, ShouldEqual, 1.0)
		})
	})
}
