// Package publish announces analysis decisions to downstream consumers.
package publish

import (
	"context"

	"github.com/okian/handrecon/internal/domain/model"
)

// Publisher sends HandAnalyzedEvents.
type Publisher interface {
	Publish(ctx context.Context, event model.HandAnalyzedEvent) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, model.HandAnalyzedEvent) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
