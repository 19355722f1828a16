package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/handrecon/pkg/metrics"
)

const memoryStoreName = "memory"

// MemoryStore is a Repository backed by a map; FetchMany keeps insertion order.
type MemoryStore[T any] struct {
	mu    sync.RWMutex
	idOf  func(T) string
	byID  map[string]T
	order []string
}

// NewMemoryStore returns an empty store. idOf extracts an entity's id.
func NewMemoryStore[T any](idOf func(T) string) *MemoryStore[T] {
	return &MemoryStore[T]{idOf: idOf, byID: make(map[string]T)}
}

// FetchByID implements Repository.
func (s *MemoryStore[T]) FetchByID(_ context.Context, id string) (T, error) {
	defer observe(memoryStoreName, "fetch_by_id", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// FetchMany implements Repository.
func (s *MemoryStore[T]) FetchMany(_ context.Context, q Query) ([]T, error) {
	defer observe(memoryStoreName, "fetch_many", time.Now())
	if q.Limit < 0 || q.Offset < 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if q.Offset >= len(ids) {
		return []T{}, nil
	}
	ids = ids[q.Offset:]
	if q.Limit > 0 && q.Limit < len(ids) {
		ids = ids[:q.Limit]
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// InsertOne implements Repository.
func (s *MemoryStore[T]) InsertOne(_ context.Context, v T) error {
	defer observe(memoryStoreName, "insert_one", time.Now())
	id := s.idOf(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; ok {
		return ErrConflict
	}
	s.byID[id] = v
	s.order = append(s.order, id)
	return nil
}

// UpdateByID implements Repository.
func (s *MemoryStore[T]) UpdateByID(_ context.Context, id string, v T) error {
	defer observe(memoryStoreName, "update_by_id", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	s.byID[id] = v
	return nil
}

// DeleteByID implements Repository.
func (s *MemoryStore[T]) DeleteByID(_ context.Context, id string) error {
	defer observe(memoryStoreName, "delete_by_id", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored entities.
func (s *MemoryStore[T]) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func observe(store, op string, start time.Time) {
	metrics.RecordRepositoryOperation(store, op, time.Since(start).Seconds())
}
