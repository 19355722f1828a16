package cards

import "errors"

var (
	// ErrInvalidCard indicates notation that is not a rank followed by a suit.
	ErrInvalidCard = errors.New("invalid card")
	// ErrNotDescribable indicates a card set the evaluator cannot name.
	ErrNotDescribable = errors.New("hand not describable")
)
