package service

import "errors"

// Sentinel kinds for service errors; the HTTP layer maps them to status codes.
var (
	ErrBackpressure  = errors.New("analysis queue is full")
	ErrDuplicate     = errors.New("hand already submitted")
	ErrNoExtractor   = errors.New("no vision extractor configured")
	ErrNoBatchSource = errors.New("no batch source configured")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotStarted    = errors.New("service not started")
)
