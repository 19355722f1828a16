// Package dedupe makes hand submissions idempotent.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper maps submission keys (hand IDs) to the analysis created for them.
type Deduper interface {
	// SeenAndRecord atomically claims key for id. When key was already claimed it
	// returns the owning id and true; otherwise it records id and returns false.
	SeenAndRecord(ctx context.Context, key, id string) (string, bool)

	// Unrecord releases key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key string
	id  string
}

// inMemoryDeduper keeps claims in insertion order and evicts the oldest claim
// once maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	order   *list.List
	index   map[string]*list.Element
	maxSize int
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		order:   list.New(),
		index:   make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		return el.Value.(entry).id, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.index, oldest.Value.(entry).key)
			d.order.Remove(oldest)
		}
	}
	d.index[key] = d.order.PushBack(entry{key: key, id: id})
	return id, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
