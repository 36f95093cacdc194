package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on a unique violation of the email column.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned on a unique violation of the username column.
	ErrUsernameTaken = errors.New("username already taken")
)
