package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
)

func conf(v float64) *float64 { return &v }

// headsUp is a complete two-player hand: valid, pot 600, no semantic errors.
func headsUp(confidence float64) []model.VisionBatchResult {
	return []model.VisionBatchResult{
		{
			Actions: []model.VisionAction{
				{PlayerName: "Ivey", Street: types.StreetPreflop, ActionType: types.ActionRaise, Amount: 300, FrameNumber: 10},
			},
			HoleCards:  []model.VisionHoleCards{{PlayerName: "Ivey", Cards: []string{"As", "Kh"}}},
			Confidence: conf(confidence),
		},
		{
			Actions: []model.VisionAction{
				{PlayerName: "Dwan", Street: types.StreetPreflop, ActionType: types.ActionCall, Amount: 300, FrameNumber: 20},
			},
			BoardCards: model.VisionBoardCards{Flop: &model.StreetCards{Cards: []string{"2c", "7d", "9s"}}},
			Winner:     &model.Winner{PlayerName: "Ivey", WinAmount: 600},
			Confidence: conf(confidence),
		},
	}
}

func job(handID string) model.AnalysisJob {
	return model.AnalysisJob{
		HandID:     handID,
		HandNumber: "#" + handID,
		BasePrompt: "Extract the hand.",
		Frames:     []model.Frame{{Number: 1, ImageURL: "https://img/" + handID + ".png"}},
	}
}

// scriptedExtractor returns confidences[i] for the i-th call per hand and
// records every prompt.
type scriptedExtractor struct {
	mu          sync.Mutex
	confidences []float64
	calls       map[string]int
	prompts     []string
	err         error
	gate        chan struct{}
	entered     chan struct{}
}

func newScripted(confidences ...float64) *scriptedExtractor {
	return &scriptedExtractor{confidences: confidences, calls: map[string]int{}}
}

func (e *scriptedExtractor) Extract(ctx context.Context, job model.AnalysisJob, prompt string) (model.Extraction, error) { //nolint:gocritic // hugeParam
	if e.entered != nil {
		select {
		case e.entered <- struct{}{}:
		default:
		}
	}
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return model.Extraction{}, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, prompt)
	if e.err != nil {
		return model.Extraction{}, e.err
	}
	i := e.calls[job.HandID]
	e.calls[job.HandID]++
	c := e.confidences[min(i, len(e.confidences)-1)]
	return model.Extraction{
		Batches:    headsUp(c),
		Confidence: c,
		Metadata:   model.RunMetadata{FrameCount: len(job.Frames), TotalCost: 0.01},
	}, nil
}

func (e *scriptedExtractor) promptLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.HandAnalyzedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e model.HandAnalyzedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []model.HandAnalyzedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.HandAnalyzedEvent(nil), p.events...)
}

type fakeSource struct {
	batches map[string][]model.VisionBatchResult
}

func (f fakeSource) Batches(_ context.Context, prefix string) ([]model.VisionBatchResult, error) {
	b, ok := f.batches[prefix]
	if !ok {
		return nil, errors.New("no such prefix")
	}
	return b, nil
}

// waitTerminal polls until the analysis reaches a terminal status.
func waitTerminal(svc *service.Service, id string) (model.Analysis, error) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a, err := svc.Get(context.Background(), id)
		if err == nil && a.Status.Terminal() {
			return a, nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return model.Analysis{}, fmt.Errorf("analysis %s did not finish", id)
}
