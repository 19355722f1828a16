package service

import (
	"time"

	"github.com/okian/handrecon/internal/adapters/publish"
	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued analyses.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many hand submissions are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for the queue to drain.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExtractor sets the vision extractor used by queued analyses.
func WithExtractor(e Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithBatchSource sets where Ingest fetches batch results by prefix.
func WithBatchSource(src BatchSource) Option {
	return func(s *Service) { s.source = src }
}

// WithPublisher sets where completion events go.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithAnalysisRepository replaces the in-memory analysis store.
func WithAnalysisRepository(r repository.Repository[model.Analysis]) Option {
	return func(s *Service) {
		if r != nil {
			s.analyses = r
		}
	}
}

// WithRosterRepository replaces the in-memory roster store.
func WithRosterRepository(r repository.Repository[model.RosterPlayer]) Option {
	return func(s *Service) {
		if r != nil {
			s.roster = r
		}
	}
}

// WithRoster seeds player names into the roster on Start.
func WithRoster(names []string) Option {
	return func(s *Service) { s.seedRoster = append([]string(nil), names...) }
}

// WithMatchThreshold sets the minimum similarity for roster resolution.
func WithMatchThreshold(t int) Option {
	return func(s *Service) {
		if t >= 0 && t <= 100 {
			s.matchThreshold = t
		}
	}
}

// WithMatchTopN sets how many suggestions MatchPlayer returns by default.
func WithMatchTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.matchTopN = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
