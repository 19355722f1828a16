package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/okian/handrecon/internal/adapters/publish"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func testEvent() model.HandAnalyzedEvent {
	return model.HandAnalyzedEvent{
		AnalysisID: "an-1",
		HandID:     "hand-1",
		Status:     types.StatusAccepted,
		Iteration:  2,
		Confidence: 0.93,
		At:         time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC),
	}
}

// receive must start before Publish; miniredis delivers synchronously.
func receive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() { ch <- <-sub.Messages() }()
	return ch
}

func TestRedisPublisher(t *testing.T) {
	Convey("Given a publisher on a running redis", t, func() {
		mr := miniredis.RunT(t)
		p, err := publish.NewRedis("redis://"+mr.Addr(), publish.WithRetries(0))
		So(err, ShouldBeNil)
		defer func() { _ = p.Close() }()

		sub := mr.NewSubscriber()
		sub.Subscribe(publish.DefaultChannel)
		ch := receive(sub)

		Convey("When an event is published", func() {
			err := p.Publish(context.Background(), testEvent())

			Convey("Then subscribers receive it as JSON", func() {
				So(err, ShouldBeNil)
				var msg miniredis.PubsubMessage
				select {
				case msg = <-ch:
				case <-time.After(5 * time.Second):
					t.Fatal("timed out waiting for pub/sub message")
				}
				So(msg.Channel, ShouldEqual, publish.DefaultChannel)

				var got model.HandAnalyzedEvent
				So(json.Unmarshal([]byte(msg.Message), &got), ShouldBeNil)
				So(got.AnalysisID, ShouldEqual, "an-1")
				So(got.Status, ShouldEqual, types.StatusAccepted)
				So(got.Iteration, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a custom channel", t, func() {
		mr := miniredis.RunT(t)
		p, err := publish.NewRedis("redis://"+mr.Addr(), publish.WithChannel("custom:hands"))
		So(err, ShouldBeNil)
		defer func() { _ = p.Close() }()
		So(p.Channel(), ShouldEqual, "custom:hands")

		sub := mr.NewSubscriber()
		sub.Subscribe("custom:hands")
		ch := receive(sub)
		So(p.Publish(context.Background(), testEvent()), ShouldBeNil)

		select {
		case msg := <-ch:
			So(msg.Channel, ShouldEqual, "custom:hands")
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for pub/sub message")
		}
	})

	Convey("Given an unreachable redis", t, func() {
		p, err := publish.NewRedis("redis://127.0.0.1:1",
			publish.WithRetries(2),
			publish.WithTimeout(100*time.Millisecond),
			publish.WithBackoff(time.Millisecond),
		)
		So(err, ShouldBeNil)
		defer func() { _ = p.Close() }()

		Convey("When publishing exhausts retries", func() {
			err := p.Publish(context.Background(), testEvent())
			So(errors.Is(err, publish.ErrPublishFail), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "3 attempts")
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := p.Publish(ctx, testEvent())
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given invalid construction input", t, func() {
		_, err := publish.NewRedis("")
		So(errors.Is(err, publish.ErrURLRequired), ShouldBeTrue)

		_, err = publish.NewRedis("http://nope")
		So(errors.Is(err, publish.ErrInvalidURL), ShouldBeTrue)

		_, err = publish.NewRedis("redis://localhost:6379", publish.WithRetries(-1))
		So(errors.Is(err, publish.ErrBadRetries), ShouldBeTrue)
	})

	Convey("Given the no-op publisher", t, func() {
		var p publish.Publisher = publish.Nop{}
		So(p.Publish(context.Background(), testEvent()), ShouldBeNil)
		So(p.Close(), ShouldBeNil)
	})
}
