package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

// Defaults for the Redis publisher.
const (
	DefaultChannel = "hands.analyzed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

// Redis publishes events as JSON with PUBLISH, retrying with exponential backoff.
type Redis struct {
	client  *goredis.Client
	channel string
	timeout time.Duration
	retries int
	backoff time.Duration
	log     logger.Logger
}

// NewRedis connects lazily to url (redis://[:password@]host:port[/db]).
func NewRedis(url string, opts ...Option) (*Redis, error) {
	if url == "" {
		return nil, ErrURLRequired
	}
	ro, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	r := &Redis{
		channel: DefaultChannel,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		backoff: defaultBackoff,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retries < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrBadRetries, r.retries)
	}
	r.client = goredis.NewClient(ro)
	return r, nil
}

// Channel returns the configured channel.
func (r *Redis) Channel() string { return r.channel }

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, event model.HandAnalyzedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attempts := 1 + r.retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			metrics.RecordEventPublished(false)
			return err
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				metrics.RecordEventPublished(false)
				return ctx.Err()
			case <-time.After(r.backoff << (i - 1)):
			}
		}

		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		lastErr = r.client.Publish(pctx, r.channel, body).Err()
		cancel()
		if lastErr == nil {
			metrics.RecordEventPublished(true)
			return nil
		}
		r.log.Warn(ctx, "publish attempt failed",
			logger.String("analysisID", event.AnalysisID),
			logger.Int("attempt", i+1),
			logger.Error(lastErr),
		)
	}

	metrics.RecordEventPublished(false)
	metrics.RecordErrorByComponent("publisher", "publish_failed")
	return fmt.Errorf("%w after %d attempts: %w", ErrPublishFail, attempts, lastErr)
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

var (
	_ Publisher = (*Redis)(nil)
	_ Publisher = Nop{}
)
