package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/domain/assemble"
	"github.com/okian/handrecon/internal/domain/consistency"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/refine"
	"github.com/okian/handrecon/internal/domain/types"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

// attempt is one pass of extract, build and check.
type attempt struct {
	iteration  int
	confidence float64
	hand       model.HandHistory
	report     consistency.Report
}

// better prefers structurally valid hands, then higher confidence.
func (a attempt) better(b attempt) bool { //nolint:gocritic // hugeParam
	if a.report.Validation.IsValid != b.report.Validation.IsValid {
		return a.report.Validation.IsValid
	}
	return a.confidence > b.confidence
}

// Analyze runs up to refine.MaxIterations extraction attempts for job, each
// with a prompt sharpened by the previous attempt's errors, and persists the
// decision. It is the worker callback.
func (s *Service) Analyze(ctx context.Context, job model.AnalysisJob) error { //nolint:gocritic // hugeParam
	if s.extractor == nil {
		return ErrNoExtractor
	}
	rec, err := s.analyses.FetchByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load analysis %s: %w", job.ID, err)
	}
	rec.Status = types.StatusRunning
	rec.UpdatedAt = s.now().UTC()
	if err := s.analyses.UpdateByID(ctx, rec.ID, rec); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	asm := s.assembler(ctx)
	ic := model.IterationContext{IterationNumber: 1, HandID: job.HandID}
	var best, last attempt

	for ic.IterationNumber <= refine.MaxIterations {
		opt := refine.OptimizePrompt(job.BasePrompt, ic)
		ext, err := s.extractor.Extract(ctx, job, opt.OptimizedPrompt)
		if err != nil {
			s.logger.Error(ctx, "extraction failed",
				logger.String("analysisID", rec.ID),
				logger.Int("iteration", ic.IterationNumber),
				logger.Error(err),
			)
			rec.Iteration = ic.IterationNumber
			rec.Status = types.StatusFailed
			rec.FailureReason = err.Error()
			return errors.Join(err, s.finish(ctx, rec))
		}

		last = s.evaluate(ctx, asm, ext.Batches, runMetadata(job, ext), ic.IterationNumber)
		if ic.IterationNumber == 1 || last.better(best) {
			best = last
		}

		status := refine.Decide(last.confidence, last.report.Errors, last.iteration)
		if status != types.StatusRetryPending {
			keep := best
			if status == types.StatusAccepted {
				keep = last
			}
			// The record describes the kept attempt, not the last one.
			apply(&rec, keep, status)
			if keep.iteration != last.iteration {
				s.logger.Info(ctx, "keeping an earlier attempt",
					logger.String("analysisID", rec.ID),
					logger.Int("kept", keep.iteration),
					logger.Int("attempts", last.iteration),
				)
			}
			return s.finish(ctx, rec)
		}

		metrics.RecordRetry()
		apply(&rec, last, status)
		rec.UpdatedAt = s.now().UTC()
		if err := s.analyses.UpdateByID(ctx, rec.ID, rec); err != nil {
			return fmt.Errorf("record retry: %w", err)
		}
		s.logger.Info(ctx, "retrying extraction",
			logger.String("analysisID", rec.ID),
			logger.Int("iteration", last.iteration),
			logger.Float64("confidence", last.confidence),
			logger.Int("errors", len(last.report.Errors)),
		)
		ic = ic.Next(last.report.Errors, last.confidence)
	}
	return nil
}

// IngestRequest carries externally produced batch results for one hand.
type IngestRequest struct {
	HandID     string                    `json:"hand_id"`
	Batches    []model.VisionBatchResult `json:"batches"`
	Prefix     string                    `json:"prefix"`
	Iteration  int                       `json:"iteration"`
	Confidence float64                   `json:"confidence"`
	Metadata   model.RunMetadata         `json:"metadata"`
}

// Ingest builds, checks and decides a hand from results produced elsewhere
// and stores it under id, creating the record when needed.
func (s *Service) Ingest(ctx context.Context, id string, req IngestRequest) (model.Analysis, error) { //nolint:gocritic // hugeParam
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Analysis{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	batches := req.Batches
	if len(batches) == 0 {
		if req.Prefix == "" {
			return model.Analysis{}, fmt.Errorf("%w: batches or prefix is required", ErrInvalidInput)
		}
		if s.source == nil {
			return model.Analysis{}, ErrNoBatchSource
		}
		var err error
		if batches, err = s.source.Batches(ctx, req.Prefix); err != nil {
			return model.Analysis{}, fmt.Errorf("fetch batches: %w", err)
		}
	}

	iteration := min(max(req.Iteration, 1), refine.MaxIterations)
	now := s.now().UTC()

	rec, err := s.analyses.FetchByID(ctx, id)
	exists := err == nil
	switch {
	case errors.Is(err, repository.ErrNotFound):
		handID := strings.TrimSpace(req.HandID)
		if handID == "" {
			handID = id
		}
		rec = model.Analysis{ID: id, HandID: handID, HandNumber: req.Metadata.HandNumber, CreatedAt: now}
	case err != nil:
		return model.Analysis{}, err
	}

	meta := req.Metadata
	meta.Confidence = req.Confidence
	if meta.HandNumber == "" {
		meta.HandNumber = rec.HandNumber
	}
	at := s.evaluate(ctx, s.assembler(ctx), batches, meta, iteration)
	status := refine.Decide(at.confidence, at.report.Errors, iteration)
	apply(&rec, at, status)
	rec.Iteration = iteration
	rec.UpdatedAt = now

	if !exists {
		if err := s.analyses.InsertOne(ctx, rec); err != nil {
			return model.Analysis{}, fmt.Errorf("persist analysis: %w", err)
		}
		s.announce(ctx, rec)
		return rec, nil
	}
	if err := s.finish(ctx, rec); err != nil {
		return model.Analysis{}, err
	}
	return rec, nil
}

func (s *Service) evaluate(ctx context.Context, asm *assemble.Assembler, batches []model.VisionBatchResult, meta model.RunMetadata, iteration int) attempt { //nolint:gocritic // hugeParam
	hand := asm.Build(ctx, batches, meta)
	report := consistency.Evaluate(hand)

	metrics.RecordHandBuilt()
	metrics.RecordIteration(iteration)
	for _, msg := range report.Validation.Errors {
		metrics.RecordValidationFailure(msg)
	}
	for _, e := range report.Errors {
		metrics.RecordHandError(string(e.Type), string(e.Severity))
	}
	return attempt{iteration: iteration, confidence: meta.Confidence, hand: hand, report: report}
}

func runMetadata(job model.AnalysisJob, ext model.Extraction) model.RunMetadata { //nolint:gocritic // hugeParam
	meta := ext.Metadata
	meta.Confidence = ext.Confidence
	if meta.HandNumber == "" {
		meta.HandNumber = job.HandNumber
	}
	if meta.FrameCount == 0 {
		meta.FrameCount = len(job.Frames)
	}
	return meta
}

func apply(rec *model.Analysis, at attempt, status types.AnalysisStatus) { //nolint:gocritic // hugeParam
	hand := at.hand
	rec.Status = status
	rec.Iteration = at.iteration
	rec.Confidence = at.confidence
	rec.Threshold = refine.ConfidenceThreshold(at.iteration)
	rec.AIExtractedData = &hand
	rec.ValidationErrors = at.report.Validation.Errors
	rec.Errors = at.report.Errors
	rec.FocusAreas = refine.IdentifyFocusAreas(at.report.Errors)
}

// finish persists a decided analysis, updates the review index and publishes.
func (s *Service) finish(ctx context.Context, rec model.Analysis) error { //nolint:gocritic // hugeParam
	rec.UpdatedAt = s.now().UTC()
	if err := s.analyses.UpdateByID(ctx, rec.ID, rec); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}
	s.announce(ctx, rec)
	return nil
}

func (s *Service) announce(ctx context.Context, rec model.Analysis) { //nolint:gocritic // hugeParam
	if rec.Status == types.StatusNeedsManualReview {
		s.reviews.Upsert(reviewEntry(rec))
	} else {
		s.reviews.Remove(rec.ID)
	}

	metrics.RecordOutcome(string(rec.Status))
	s.completed.Add(1)
	s.logger.Info(ctx, "analysis decided",
		logger.String("analysisID", rec.ID),
		logger.String("handID", rec.HandID),
		logger.String("status", string(rec.Status)),
		logger.Int("iteration", rec.Iteration),
		logger.Float64("confidence", rec.Confidence),
	)

	err := s.publisher.Publish(ctx, model.HandAnalyzedEvent{
		AnalysisID: rec.ID,
		HandID:     rec.HandID,
		Status:     rec.Status,
		Iteration:  rec.Iteration,
		Confidence: rec.Confidence,
		ErrorCount: len(rec.Errors),
		At:         rec.UpdatedAt,
	})
	if err != nil {
		s.logger.Warn(ctx, "publishing analysis event failed",
			logger.String("analysisID", rec.ID),
			logger.Error(err),
		)
	}
}

func reviewEntry(rec model.Analysis) repository.ReviewEntry { //nolint:gocritic // hugeParam
	return repository.ReviewEntry{
		AnalysisID: rec.ID,
		HandID:     rec.HandID,
		Confidence: rec.Confidence,
		Iteration:  rec.Iteration,
		ErrorCount: len(rec.Errors),
	}
}

// loadReviews indexes every stored analysis that awaits manual review.
func (s *Service) loadReviews(ctx context.Context) (int, error) {
	loaded := 0
	for offset := 0; ; offset += reviewLoadPage {
		page, err := s.analyses.FetchMany(ctx, repository.Query{Limit: reviewLoadPage, Offset: offset})
		if err != nil {
			return loaded, err
		}
		for i := range page {
			if page[i].Status == types.StatusNeedsManualReview {
				s.reviews.Upsert(reviewEntry(page[i]))
				loaded++
			}
		}
		if len(page) < reviewLoadPage {
			return loaded, nil
		}
	}
}
