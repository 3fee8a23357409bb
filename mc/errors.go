package mc

import "errors"

var (
	// ErrInvalidParameter marks numeric input that a stage cannot work with.
	ErrInvalidParameter = errors.New("mc: invalid parameter")

	// ErrDependencyViolation marks a stage running before its producer
	// finished, or a buffer set being taken while another iteration owns it.
	ErrDependencyViolation = errors.New("mc: dependency violation")

	// ErrToleranceExceeded marks a price that is too far from its reference.
	ErrToleranceExceeded = errors.New("mc: tolerance exceeded")
)
