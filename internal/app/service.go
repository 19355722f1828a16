// Package service wires the hand reconstruction core to its queue, stores,
// extractor and publisher, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/handrecon/internal/adapters/mq/queue"
	"github.com/okian/handrecon/internal/adapters/mq/worker"
	"github.com/okian/handrecon/internal/adapters/publish"
	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/domain/dedupe"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/namematch"
	"github.com/okian/handrecon/internal/domain/refine"
	"github.com/okian/handrecon/internal/domain/types"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

const (
	defaultQueueSize       = 1_000
	defaultDedupeSize      = 50_000
	defaultShutdownTimeout = 30 * time.Second
	reviewLoadPage         = 500
)

// Extractor turns a job's frames into batch results using prompt.
type Extractor interface {
	Extract(ctx context.Context, job model.AnalysisJob, prompt string) (model.Extraction, error)
}

// BatchSource fetches stored batch results for a hand.
type BatchSource interface {
	Batches(ctx context.Context, prefix string) ([]model.VisionBatchResult, error)
}

// Service implements the API dependencies for hand analysis.
type Service struct {
	mu sync.RWMutex

	analyses  repository.Repository[model.Analysis]
	roster    repository.Repository[model.RosterPlayer]
	reviews   *repository.ReviewIndex
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	extractor Extractor
	source    BatchSource
	publisher publish.Publisher

	workerCount     int
	queueSize       int
	dedupeSize      int
	shutdownTimeout time.Duration
	matchThreshold  int
	matchTopN       int
	seedRoster      []string

	submitted atomic.Int64
	completed atomic.Int64

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a Service. Stores default to memory and events are dropped
// unless a publisher is given.
func New(opts ...Option) *Service {
	s := &Service{
		analyses:        repository.NewMemoryStore(repository.AnalysisID),
		roster:          repository.NewMemoryStore(repository.RosterPlayerID),
		reviews:         repository.NewReviewIndex(),
		publisher:       publish.Nop{},
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		shutdownTimeout: defaultShutdownTimeout,
		matchThreshold:  namematch.DefaultThreshold,
		matchTopN:       namematch.DefaultTopN,
		now:             time.Now,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start seeds the roster, reloads the review queue from the analysis store and
// starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting analysis service...")

	if err := s.seedRosterPlayers(ctx); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	pending, err := s.loadReviews(ctx)
	if err != nil {
		return fmt.Errorf("load review queue: %w", err)
	}
	if pending > 0 {
		s.logger.Info(ctx, "review queue restored", logger.Int("pending", pending))
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.AnalyzerFunc(s.Analyze),
		worker.WithPoolLogger(s.logger.Named("worker-pool")),
	)
	// Workers outlive the request that started the service.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("extractor", s.extractor != nil),
	)
	return nil
}

// Stop drains the queue and releases the publisher.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping analysis service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn(ctx, "closing publisher", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
}

// Submit records a queued analysis for job and hands it to the workers. A
// repeated hand ID returns the existing analysis with ErrDuplicate.
func (s *Service) Submit(ctx context.Context, job model.AnalysisJob) (model.Analysis, error) { //nolint:gocritic // hugeParam
	if s.extractor == nil {
		return model.Analysis{}, ErrNoExtractor
	}
	job.HandID = strings.TrimSpace(job.HandID)
	if job.HandID == "" || len(job.Frames) == 0 {
		return model.Analysis{}, fmt.Errorf("%w: hand_id and frames are required", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Analysis{}, ErrNotStarted
	}

	job.ID = uuid.NewString()
	job.SubmittedAt = s.now().UTC()

	if owner, seen := s.deduper.SeenAndRecord(ctx, job.HandID, job.ID); seen {
		existing, err := s.analyses.FetchByID(ctx, owner)
		if err != nil {
			return model.Analysis{}, fmt.Errorf("load duplicate %s: %w", owner, err)
		}
		s.logger.Debug(ctx, "duplicate hand submission",
			logger.String("handID", job.HandID),
			logger.String("analysisID", owner),
		)
		return existing, ErrDuplicate
	}

	a := model.Analysis{
		ID:         job.ID,
		HandID:     job.HandID,
		HandNumber: job.HandNumber,
		Status:     types.StatusQueued,
		Threshold:  refine.ConfidenceThreshold(1),
		CreatedAt:  job.SubmittedAt,
		UpdatedAt:  job.SubmittedAt,
	}
	if err := s.analyses.InsertOne(ctx, a); err != nil {
		s.deduper.Unrecord(ctx, job.HandID)
		return model.Analysis{}, fmt.Errorf("persist analysis: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, job.HandID)
		if derr := s.analyses.DeleteByID(ctx, job.ID); derr != nil {
			s.logger.Warn(ctx, "rollback of queued analysis failed", logger.Error(derr))
		}
		if errors.Is(err, queue.ErrFull) {
			return model.Analysis{}, ErrBackpressure
		}
		return model.Analysis{}, fmt.Errorf("enqueue: %w", err)
	}

	s.submitted.Add(1)
	return a, nil
}

// Get returns an analysis by id.
func (s *Service) Get(ctx context.Context, id string) (model.Analysis, error) {
	return s.analyses.FetchByID(ctx, id)
}

// List pages through analyses in creation order.
func (s *Service) List(ctx context.Context, limit, offset int) ([]model.Analysis, error) {
	return s.analyses.FetchMany(ctx, repository.Query{Limit: limit, Offset: offset})
}

// Reviews returns up to n analyses awaiting manual review, lowest confidence first.
func (s *Service) Reviews(_ context.Context, n int) ([]repository.ReviewEntry, error) {
	return s.reviews.Lowest(n)
}

// ReviewPosition returns the analysis's entry in the review queue with its
// current rank, or repository.ErrNotFound when it is not awaiting review.
func (s *Service) ReviewPosition(_ context.Context, analysisID string) (repository.ReviewEntry, error) {
	return s.reviews.Position(analysisID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"submitted":      s.submitted.Load(),
		"completed":      s.completed.Load(),
		"awaitingReview": s.reviews.Len(),
		"extractor":      s.extractor != nil,
		"batchSource":    s.source != nil,
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["workerCount"] = s.pool.Size()
	}
	return stats
}
