package repository

import "math/rand/v2"

// ReviewOption applies a configuration option to the ReviewIndex.
type ReviewOption func(*ReviewIndex)

// WithSeed makes treap priorities deterministic.
func WithSeed(seed uint64) ReviewOption {
	return func(r *ReviewIndex) {
		r.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // treap priorities
	}
}
