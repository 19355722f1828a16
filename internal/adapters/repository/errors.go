package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrConflict     = errors.New("entity already exists")
	ErrInvalidLimit = errors.New("invalid limit")
)
