package retry

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when MaxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrInvalidWait is returned when MinWait is negative or exceeds MaxWait.
	ErrInvalidWait = errors.New("min wait must be non-negative and not exceed max wait")
)
