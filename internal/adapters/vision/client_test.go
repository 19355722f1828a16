package vision_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okian/handrecon/internal/adapters/vision"
	"github.com/okian/handrecon/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type captured struct {
	auth     string
	model    string
	system   string
	userText string
	images   int
}

func completion(content string, tokens int) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		"usage":   map[string]any{"total_tokens": tokens},
	})
	return string(b)
}

func newServer(replies []string, seen *[]captured) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		c := captured{auth: r.Header.Get("Authorization"), model: req.Model}
		if len(req.Messages) == 2 {
			_ = json.Unmarshal(req.Messages[0].Content, &c.system)
			var parts []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			_ = json.Unmarshal(req.Messages[1].Content, &parts)
			for _, p := range parts {
				if p.Type == "text" {
					c.userText = p.Text
				} else {
					c.images++
				}
			}
		}
		*seen = append(*seen, c)

		i := int(calls.Add(1)) - 1
		if i >= len(replies) {
			i = len(replies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(replies[i]))
	}))
	return srv, &calls
}

func threeFrames() model.AnalysisJob {
	return model.AnalysisJob{
		ID:         "job-1",
		HandID:     "hand-1",
		HandNumber: "#7",
		Frames: []model.Frame{
			{Number: 1, Timestamp: 0.5, ImageURL: "https://img/1.png", PlayerOCR: []string{"Alice $1,500"}, BoardOCR: "Pot: $300"},
			{Number: 2, Timestamp: 1.0, ImageURL: "https://img/2.png", PlayerOCR: []string{"???"}},
			{Number: 3, Timestamp: 1.5, ImageURL: "https://img/3.png", BoardOCR: "A♠ K♥ 7♦"},
		},
	}
}

func TestClientExtract(t *testing.T) {
	Convey("Given a vision endpoint answering two batches", t, func() {
		var seen []captured
		first := completion(`{"actions":[{"playerName":"Alice","street":"preflop","actionType":"raise","amount":100,"frameNumber":1,"timestamp":0.5}],"boardCards":{},"holeCards":[],"winner":null,"confidence":0.8}`, 1000)
		second := completion("```json\n"+`{"actions":[],"boardCards":{"flop":{"cards":["As","Kh","7d"]}},"holeCards":[],"winner":{"playerName":"Alice","winAmount":300},"confidence":0.6}`+"\n```", 500)
		srv, calls := newServer([]string{first, second}, &seen)
		defer srv.Close()

		client, err := vision.New(
			vision.WithBaseURL(srv.URL+"/"),
			vision.WithAPIKey("sk-test"),
			vision.WithModel("vision-test"),
			vision.WithBatchSize(2),
			vision.WithCostPer1KTokens(0.01),
		)
		So(err, ShouldBeNil)

		Convey("When a three-frame job is extracted", func() {
			ext, err := client.Extract(context.Background(), threeFrames(), "## Iteration 1 of 3")

			Convey("Then one request is made per batch", func() {
				So(err, ShouldBeNil)
				So(calls.Load(), ShouldEqual, 2)
				So(seen[0].auth, ShouldEqual, "Bearer sk-test")
				So(seen[0].model, ShouldEqual, "vision-test")
				So(seen[0].system, ShouldStartWith, "## Iteration 1 of 3")
				So(seen[0].images, ShouldEqual, 2)
				So(seen[1].images, ShouldEqual, 1)
			})

			Convey("Then OCR hints are sent with the frames", func() {
				So(seen[0].userText, ShouldContainSubstring, "pot 300")
				So(seen[0].userText, ShouldContainSubstring, "stack 1500")
				So(seen[1].userText, ShouldContainSubstring, "board OCR cards as kh 7d")
			})

			Convey("Then batches and run metadata are aggregated", func() {
				So(len(ext.Batches), ShouldEqual, 2)
				So(ext.Batches[0].Actions[0].PlayerName, ShouldEqual, "Alice")
				So(ext.Batches[1].Winner.WinAmount, ShouldEqual, 300)
				So(ext.Confidence, ShouldAlmostEqual, 0.7, 1e-9)
				So(ext.Metadata.Confidence, ShouldAlmostEqual, 0.7, 1e-9)
				So(ext.Metadata.TotalCost, ShouldAlmostEqual, 0.015, 1e-9)
				So(ext.Metadata.FrameCount, ShouldEqual, 3)
				So(ext.Metadata.HandNumber, ShouldEqual, "#7")
				So(ext.Metadata.OCRAccuracy, ShouldAlmostEqual, 0.75, 1e-9)
			})
		})
	})

	Convey("Given an endpoint that fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()
		client, _ := vision.New(vision.WithBaseURL(srv.URL), vision.WithAPIKey("k"))

		_, err := client.Extract(context.Background(), threeFrames(), "p")

		Convey("Then ErrUpstream carries the status", func() {
			So(errors.Is(err, vision.ErrUpstream), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "429")
		})
	})

	Convey("Given an endpoint that replies with prose", t, func() {
		var seen []captured
		srv, _ := newServer([]string{completion("I cannot see the table.", 10)}, &seen)
		defer srv.Close()
		client, _ := vision.New(vision.WithBaseURL(srv.URL), vision.WithAPIKey("k"))

		_, err := client.Extract(context.Background(), threeFrames(), "p")

		Convey("Then ErrBadResponse is returned", func() {
			So(errors.Is(err, vision.ErrBadResponse), ShouldBeTrue)
		})
	})

	Convey("Given invalid client input", t, func() {
		_, err := vision.New()
		So(errors.Is(err, vision.ErrMissingAPIKey), ShouldBeTrue)

		client, _ := vision.New(vision.WithAPIKey("k"))
		_, err = client.Extract(context.Background(), model.AnalysisJob{}, "p")
		So(errors.Is(err, vision.ErrNoFrames), ShouldBeTrue)
		So(strings.TrimSpace(err.Error()), ShouldNotBeEmpty)
	})
}
