package assemble

import (
	"github.com/okian/handrecon/internal/domain/namematch"
	"github.com/okian/handrecon/pkg/logger"
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for dropped-record warnings.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMatcher resolves every extracted player name to a roster identity.
func WithMatcher(m *namematch.Matcher) Option {
	return func(a *Assembler) {
		a.matcher = m
	}
}

// WithRoster is WithMatcher over a plain roster and threshold.
func WithRoster(names []string, threshold int) Option {
	return func(a *Assembler) {
		if len(names) > 0 {
			a.matcher = namematch.NewMatcher(names, namematch.WithThreshold(threshold))
		}
	}
}

// WithHandDescription toggles the evaluator suffix in descriptions. Enabled by default.
func WithHandDescription(enabled bool) Option {
	return func(a *Assembler) {
		a.describeHand = enabled
	}
}
