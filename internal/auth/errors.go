package auth

import "errors"

// Authentication failures. All are terminal for the current request and map
// to an unauthorized response at the transport layer.
var (
	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrMalformedToken is returned when a token cannot be parsed.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature is returned when a token's integrity check fails.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrBadCredentials is returned on a failed username/password login.
	ErrBadCredentials = errors.New("bad credentials")
)
