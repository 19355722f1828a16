package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/handrecon/internal/adapters/http/api"
	"github.com/okian/handrecon/internal/adapters/http/swagger"
	"github.com/okian/handrecon/internal/adapters/publish"
	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/adapters/storage"
	"github.com/okian/handrecon/internal/adapters/vision"
	app "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/config"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

var _ api.Dependencies = (*app.Service)(nil)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, cleanup, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires the adapters selected by cfg into a Service. The
// returned cleanup releases what was opened here; on error nothing is left open.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithShutdownTimeout(time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond),
		app.WithMatchThreshold(cfg.MatchThreshold),
		app.WithMatchTopN(cfg.MatchTopN),
		app.WithRoster(cfg.Roster),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		pool, err := repository.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := repository.Migrate(ctx, pool); err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts,
			app.WithAnalysisRepository(repository.NewPostgresStore(pool, repository.AnalysisTable)),
			app.WithRosterRepository(repository.NewPostgresStore(pool, repository.RosterTable)),
		)
		log.Info(ctx, "using postgres store")
	}

	if cfg.RedisURL != "" {
		pub, err := publish.NewRedis(cfg.RedisURL,
			publish.WithChannel(cfg.RedisChannel),
			publish.WithRetries(cfg.RedisMaxRetries),
			publish.WithLogger(log.Named("publish")),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis publisher: %w", err)
		}
		opts = append(opts, app.WithPublisher(pub))
		log.Info(ctx, "publishing completion events", logger.String("channel", pub.Channel()))
	}

	if cfg.S3Bucket != "" {
		src, err := storage.NewS3Source(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("s3 source: %w", err)
		}
		opts = append(opts, app.WithBatchSource(src))
	}

	if cfg.VisionAPIKey != "" {
		client, err := vision.New(
			vision.WithBaseURL(cfg.VisionBaseURL),
			vision.WithAPIKey(cfg.VisionAPIKey),
			vision.WithModel(cfg.VisionModel),
			vision.WithBatchSize(cfg.VisionBatchSize),
			vision.WithCostPer1KTokens(cfg.VisionCostPer1KTokens),
			vision.WithTimeout(time.Duration(cfg.VisionTimeoutMS)*time.Millisecond),
			vision.WithLogger(log.Named("vision")),
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("vision client: %w", err)
		}
		opts = append(opts, app.WithExtractor(client))
	} else {
		log.Warn(ctx, "no vision api key; POST /analyses is disabled")
	}

	return app.New(opts...), cleanup, nil
}

// newRouter registers the API and documentation routes.
func newRouter(svc *app.Service) http.Handler {
	r := chi.NewRouter()
	swagger.Register(r)
	api.NewServer(svc, svc, 0).Register(r)
	return r
}

// startServiceMetricsUpdater periodically copies service gauges into metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
