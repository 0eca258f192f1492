package canvas

import "errors"

var (
	// ErrInvalidInput indicates out-of-range coordinates or a malformed color.
	ErrInvalidInput = errors.New("invalid placement input")
	// ErrRateLimited indicates the user placed again too soon.
	ErrRateLimited = errors.New("rate limited")
	// ErrInsufficientFunds indicates the user cannot afford the placement.
	// Nothing is mutated on this path.
	ErrInsufficientFunds = errors.New("insufficient credits")
)
