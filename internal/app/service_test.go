package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/handrecon/internal/adapters/repository"
	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(10),
			service.WithDedupeSize(100),
		)
		defer svc.Stop()

		Convey("When it is started twice", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports itself running", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And Stop marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_SubmitGuards(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without an extractor", t, func() {
		svc := service.New()
		_, err := svc.Submit(ctx, job("h1"))

		Convey("Then submissions are refused", func() {
			So(errors.Is(err, service.ErrNoExtractor), ShouldBeTrue)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithExtractor(newScripted(0.9)))
		_, err := svc.Submit(ctx, job("h1"))
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
	})

	Convey("Given a job with no frames", t, func() {
		svc := service.New(service.WithExtractor(newScripted(0.9)))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		j := job("h1")
		j.Frames = nil
		_, err := svc.Submit(ctx, j)
		So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestService_Refinement(t *testing.T) {
	ctx := context.Background()

	Convey("Given an extractor that is confident on the first attempt", t, func() {
		pub := &recordingPublisher{}
		ext := newScripted(0.9)
		svc := service.New(service.WithExtractor(ext), service.WithPublisher(pub), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		queued, err := svc.Submit(ctx, job("h1"))
		So(err, ShouldBeNil)
		So(queued.Status, ShouldEqual, types.StatusQueued)
		So(queued.ID, ShouldNotBeEmpty)

		Convey("Then the hand is accepted after one iteration", func() {
			done, err := waitTerminal(svc, queued.ID)
			So(err, ShouldBeNil)
			So(done.Status, ShouldEqual, types.StatusAccepted)
			So(done.Iteration, ShouldEqual, 1)
			So(done.Threshold, ShouldEqual, 0.85)
			So(done.AIExtractedData, ShouldNotBeNil)
			So(done.AIExtractedData.PotSize, ShouldEqual, 600)
			So(done.AIExtractedData.HandNumber, ShouldEqual, "#h1")
			So(done.Errors, ShouldBeEmpty)
			So(len(ext.promptLog()), ShouldEqual, 1)
			So(ext.promptLog()[0], ShouldContainSubstring, "## Iteration 1 of 3")

			events := pub.published()
			So(len(events), ShouldEqual, 1)
			So(events[0].AnalysisID, ShouldEqual, queued.ID)
			So(events[0].Status, ShouldEqual, types.StatusAccepted)
		})
	})

	Convey("Given an extractor that improves on the second attempt", t, func() {
		ext := newScripted(0.5, 0.95)
		svc := service.New(service.WithExtractor(ext), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		queued, err := svc.Submit(ctx, job("h2"))
		So(err, ShouldBeNil)

		Convey("Then the second prompt carries the first attempt's outcome", func() {
			done, err := waitTerminal(svc, queued.ID)
			So(err, ShouldBeNil)
			So(done.Status, ShouldEqual, types.StatusAccepted)
			So(done.Iteration, ShouldEqual, 2)
			So(done.Confidence, ShouldEqual, 0.95)

			prompts := ext.promptLog()
			So(len(prompts), ShouldEqual, 2)
			So(prompts[1], ShouldContainSubstring, "## Iteration 2 of 3")
			So(prompts[1], ShouldContainSubstring, "confidence 0.50")
		})
	})

	Convey("Given an extractor that never clears the bar", t, func() {
		ext := newScripted(0.4, 0.7, 0.6)
		svc := service.New(service.WithExtractor(ext), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		queued, err := svc.Submit(ctx, job("h3"))
		So(err, ShouldBeNil)

		Convey("Then it stops after three attempts and awaits review with the best attempt", func() {
			done, err := waitTerminal(svc, queued.ID)
			So(err, ShouldBeNil)
			So(done.Status, ShouldEqual, types.StatusNeedsManualReview)
			So(len(ext.promptLog()), ShouldEqual, 3)

			// The record is the second attempt's throughout.
			So(done.Iteration, ShouldEqual, 2)
			So(done.Confidence, ShouldEqual, 0.7)
			So(done.Threshold, ShouldEqual, 0.90)
			So(ext.promptLog()[2], ShouldContainSubstring, "Triple-check every value.")

			reviews, err := svc.Reviews(ctx, 10)
			So(err, ShouldBeNil)
			So(len(reviews), ShouldEqual, 1)
			So(reviews[0].AnalysisID, ShouldEqual, queued.ID)
			So(reviews[0].Rank, ShouldEqual, 1)
			So(reviews[0].Iteration, ShouldEqual, 2)
		})
	})

	Convey("Given an extractor that errors", t, func() {
		ext := newScripted(0.9)
		ext.err = errors.New("upstream 500")
		svc := service.New(service.WithExtractor(ext), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		queued, err := svc.Submit(ctx, job("h4"))
		So(err, ShouldBeNil)

		Convey("Then the analysis is marked failed with the reason", func() {
			done, err := waitTerminal(svc, queued.ID)
			So(err, ShouldBeNil)
			So(done.Status, ShouldEqual, types.StatusFailed)
			So(done.FailureReason, ShouldContainSubstring, "upstream 500")
		})
	})
}

func TestService_Idempotency(t *testing.T) {
	ctx := context.Background()

	Convey("Given a hand submitted twice", t, func() {
		svc := service.New(service.WithExtractor(newScripted(0.9)), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		first, err := svc.Submit(ctx, job("dup"))
		So(err, ShouldBeNil)
		second, err := svc.Submit(ctx, job("dup"))

		Convey("Then the second call returns the first analysis", func() {
			So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
			So(second.ID, ShouldEqual, first.ID)
		})
	})

	Convey("Given a single busy worker and a queue of one", t, func() {
		ext := newScripted(0.9)
		ext.gate = make(chan struct{})
		ext.entered = make(chan struct{}, 1)
		svc := service.New(service.WithExtractor(ext), service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Submit(ctx, job("a"))
		So(err, ShouldBeNil)
		<-ext.entered
		_, err = svc.Submit(ctx, job("b"))
		So(err, ShouldBeNil)

		Convey("When a third hand arrives", func() {
			_, err := svc.Submit(ctx, job("c"))

			Convey("Then it is refused with backpressure and can be retried later", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
				list, _ := svc.List(ctx, 0, 0)
				So(len(list), ShouldEqual, 2)

				close(ext.gate)
				time.Sleep(50 * time.Millisecond)
				_, err = svc.Submit(ctx, job("c"))
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_ReviewQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()

	Convey("Given analyses stored by a service that has since stopped", t, func() {
		store := repository.NewMemoryStore(repository.AnalysisID)
		first := service.New(service.WithAnalysisRepository(store))
		So(first.Start(ctx), ShouldBeNil)

		_, err := first.Ingest(ctx, "a1", service.IngestRequest{Batches: headsUp(0.2), Confidence: 0.2, Iteration: 3})
		So(err, ShouldBeNil)
		_, err = first.Ingest(ctx, "a2", service.IngestRequest{Batches: headsUp(0.4), Confidence: 0.4, Iteration: 3})
		So(err, ShouldBeNil)
		_, err = first.Ingest(ctx, "a3", service.IngestRequest{Batches: headsUp(0.99), Confidence: 0.99, Iteration: 1})
		So(err, ShouldBeNil)
		first.Stop()

		Convey("When a new service starts on the same store", func() {
			second := service.New(service.WithAnalysisRepository(store))
			So(second.Start(ctx), ShouldBeNil)
			defer second.Stop()

			Convey("Then the analyses awaiting review are queued again", func() {
				reviews, err := second.Reviews(ctx, 10)
				So(err, ShouldBeNil)
				So(len(reviews), ShouldEqual, 2)
				So(reviews[0].AnalysisID, ShouldEqual, "a1")
				So(reviews[1].AnalysisID, ShouldEqual, "a2")
				So(second.GetStats()["awaitingReview"], ShouldEqual, 2)

				pos, err := second.ReviewPosition(ctx, "a2")
				So(err, ShouldBeNil)
				So(pos.Rank, ShouldEqual, 2)
				_, err = second.ReviewPosition(ctx, "a3")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
