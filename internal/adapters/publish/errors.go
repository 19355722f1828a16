package publish

import "errors"

// Sentinel kinds for publisher errors.
var (
	ErrURLRequired = errors.New("redis url is required")
	ErrInvalidURL  = errors.New("invalid redis url")
	ErrPublishFail = errors.New("publish failed")
	ErrBadRetries  = errors.New("retries must be >= 0")
)
