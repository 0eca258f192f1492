package user

import "errors"

var (
	// ErrUserNotFound indicates the user doesn't exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrHandleTaken indicates the handle is already registered.
	ErrHandleTaken = errors.New("handle already taken")
	// ErrInvalidInput indicates invalid registration input.
	ErrInvalidInput = errors.New("invalid user input")
)
