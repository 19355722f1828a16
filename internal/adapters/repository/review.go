package repository

import (
	"math/rand/v2"
	"sync"
)

// ReviewEntry is one analysis waiting for a human to look at it.
type ReviewEntry struct {
	Rank       int     `json:"rank"`
	AnalysisID string  `json:"analysis_id"`
	HandID     string  `json:"hand_id"`
	Confidence float64 `json:"confidence"`
	Iteration  int     `json:"iteration"`
	ErrorCount int     `json:"error_count"`
}

// ReviewIndex orders analyses awaiting manual review, lowest confidence first.
// Ties break on analysis id. It is a treap keyed by (confidence, id) with
// subtree sizes, so rank lookups are O(log n) expected.
type ReviewIndex struct {
	mu   sync.RWMutex
	root *node
	byID map[string]ReviewEntry
	rnd  *rand.Rand
}

type node struct {
	id    string
	conf  float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aConf, aID) sorts before (bConf, bID).
func less(aConf float64, aID string, bConf float64, bID string) bool {
	if aConf != bConf {
		return aConf < bConf
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, conf float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, conf: conf, prio: prio, size: 1}
	}
	if less(conf, id, n.conf, n.id) {
		n.left = insert(n.left, id, conf, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, conf, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, conf float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case conf == n.conf && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, conf)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, conf)
		}
	case less(conf, id, n.conf, n.id):
		n.left = deleteNode(n.left, id, conf)
	default:
		n.right = deleteNode(n.right, id, conf)
	}
	fix(n)
	return n
}

// collect appends up to limit ids in order.
func collect(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// NewReviewIndex returns an empty index.
func NewReviewIndex(opts ...ReviewOption) *ReviewIndex {
	r := &ReviewIndex{byID: make(map[string]ReviewEntry)}
	for _, opt := range opts {
		opt(r)
	}
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // treap priorities
	}
	return r
}

// Upsert adds the entry or moves it to its new confidence.
func (r *ReviewIndex) Upsert(e ReviewEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[e.AnalysisID]; ok {
		r.root = deleteNode(r.root, old.AnalysisID, old.Confidence)
	}
	e.Rank = 0
	r.byID[e.AnalysisID] = e
	r.root = insert(r.root, e.AnalysisID, e.Confidence, r.rnd.Uint64())
}

// Remove drops the analysis from the index and reports whether it was present.
func (r *ReviewIndex) Remove(analysisID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[analysisID]
	if !ok {
		return false
	}
	r.root = deleteNode(r.root, analysisID, old.Confidence)
	delete(r.byID, analysisID)
	return true
}

// Lowest returns up to n entries, lowest confidence first, with 1-based ranks.
func (r *ReviewIndex) Lowest(n int) ([]ReviewEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, min(n, len(r.byID)))
	collect(r.root, n, &ids)
	out := make([]ReviewEntry, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
		out[i].Rank = i + 1
	}
	return out, nil
}

// Position returns the entry with its current rank.
func (r *ReviewIndex) Position(analysisID string) (ReviewEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[analysisID]
	if !ok {
		return ReviewEntry{}, ErrNotFound
	}

	rank := 1
	for n := r.root; n != nil; {
		switch {
		case n.id == e.AnalysisID && n.conf == e.Confidence:
			e.Rank = rank + nsize(n.left)
			return e, nil
		case less(e.Confidence, e.AnalysisID, n.conf, n.id):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return ReviewEntry{}, ErrNotFound
}

// Len returns the number of entries.
func (r *ReviewIndex) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
