package authjwt

import "errors"

// Validation failures. The service maps these onto its own sentinel errors
// before they reach HTTP handlers.
var (
	ErrInvalidToken     = errors.New("access token is malformed")
	ErrExpiredToken     = errors.New("access token expired")
	ErrInvalidSignature = errors.New("access token signature mismatch")
	ErrMissingSubject   = errors.New("access token has no subject")
)
