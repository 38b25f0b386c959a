package auth

import "errors"

var (
	// ErrMissingUserID is returned when the request carries no user header.
	ErrMissingUserID = errors.New("user identification required")

	// ErrInvalidUserID is returned when the user identifier is malformed.
	ErrInvalidUserID = errors.New("invalid user identifier format")
)
