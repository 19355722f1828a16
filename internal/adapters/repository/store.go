// Package repository persists analyses and roster players.
package repository

import "context"

// Query pages through FetchMany results. A zero Limit means no limit.
type Query struct {
	Limit  int
	Offset int
}

// Repository is the persistence contract shared by every stored entity.
type Repository[T any] interface {
	// FetchByID returns ErrNotFound when no entity has the id.
	FetchByID(ctx context.Context, id string) (T, error)
	// FetchMany returns entities in insertion order.
	FetchMany(ctx context.Context, q Query) ([]T, error)
	// InsertOne returns ErrConflict when the id already exists.
	InsertOne(ctx context.Context, v T) error
	// UpdateByID replaces the entity; ErrNotFound when it does not exist.
	UpdateByID(ctx context.Context, id string, v T) error
	DeleteByID(ctx context.Context, id string) error
}
