package vision

import "errors"

// Sentinel kinds for extractor errors.
var (
	ErrMissingAPIKey = errors.New("vision api key missing")
	ErrNoFrames      = errors.New("job has no frames")
	ErrUpstream      = errors.New("vision upstream error")
	ErrBadResponse   = errors.New("vision response not understood")
)
