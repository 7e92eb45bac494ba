package ledger

import "errors"

var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrPositionNotFound         = errors.New("position not found")
	ErrPositionAlreadyClosed    = errors.New("position already closed")
	ErrQuantityExceedsRemaining = errors.New("quantity exceeds remaining")

	// ErrVersionConflict is returned by stores when a position was changed
	// by someone else since it was loaded.
	ErrVersionConflict = errors.New("position version conflict")
)
