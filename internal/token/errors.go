package token

import "errors"

// Verification outcomes. These are expected conditions, not faults: callers
// branch on them rather than logging them as errors.
var (
	// ErrMalformed is returned when a token does not have the
	// header.payload.signature shape or its payload cannot be decoded.
	ErrMalformed = errors.New("token is malformed")

	// ErrBadSignature is returned when the signature does not match the
	// header and payload under the process secret.
	ErrBadSignature = errors.New("token signature is invalid")

	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("token is expired")

	// ErrWrongKind is returned when an access token is presented where a
	// refresh token is required, or the other way around.
	ErrWrongKind = errors.New("unexpected token kind")
)
