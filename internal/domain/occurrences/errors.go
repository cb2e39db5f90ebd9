package occurrences

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("occurrence not found")
	ErrLocked           = errors.New("occurrence locked")
	ErrCapacityExceeded = errors.New("daily capacity exceeded")
)
