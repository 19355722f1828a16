package publish

import (
	"time"

	"github.com/okian/handrecon/pkg/logger"
)

// Option applies a configuration option to the Redis publisher.
type Option func(*Redis)

// WithChannel sets the pub/sub channel.
func WithChannel(ch string) Option {
	return func(r *Redis) {
		if ch != "" {
			r.channel = ch
		}
	}
}

// WithRetries sets the number of attempts after the first one.
func WithRetries(n int) Option {
	return func(r *Redis) { r.retries = n }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBackoff sets the delay before the first retry; it doubles after each.
func WithBackoff(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.backoff = d
		}
	}
}

// WithLogger sets a custom logger for the publisher.
func WithLogger(l logger.Logger) Option {
	return func(r *Redis) {
		if l != nil {
			r.log = l
		}
	}
}
