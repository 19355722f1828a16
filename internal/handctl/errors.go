package handctl

import "errors"

// Sentinel kinds for CLI errors.
var (
	ErrInvalidHand  = errors.New("hand failed validation")
	ErrBadInput     = errors.New("bad input")
	ErrServer       = errors.New("server rejected request")
	ErrWaitTimedOut = errors.New("analysis did not finish in time")
)
