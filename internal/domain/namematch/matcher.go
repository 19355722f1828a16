package namematch

// Matcher binds a roster and matching policy.
type Matcher struct {
	roster    []string
	threshold int
	topN      int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the inclusive similarity threshold.
func WithThreshold(t int) Option {
	return func(m *Matcher) {
		if t >= 0 && t <= 100 {
			m.threshold = t
		}
	}
}

// WithTopN sets how many alternatives Top returns.
func WithTopN(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.topN = n
		}
	}
}

// NewMatcher returns a Matcher over a copy of roster.
func NewMatcher(roster []string, opts ...Option) *Matcher {
	m := &Matcher{
		roster:    append([]string(nil), roster...),
		threshold: DefaultThreshold,
		topN:      DefaultTopN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Best resolves name to a roster identity.
func (m *Matcher) Best(name string) (MatchResult, bool) {
	return FindBestMatch(name, m.roster, m.threshold)
}

// Top returns review alternatives for name.
func (m *Matcher) Top(name string) []MatchResult {
	return FindTopMatches(name, m.roster, m.topN, m.threshold)
}

// Resolve returns the roster name for name, or name itself when nothing qualifies.
func (m *Matcher) Resolve(name string) string {
	if r, ok := m.Best(name); ok {
		return r.Name
	}
	return name
}

// Threshold reports the configured threshold.
func (m *Matcher) Threshold() int { return m.threshold }
