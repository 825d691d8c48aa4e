package authservice

import "errors"

// Sentinel errors returned by Service. Handlers map the token errors to 401
// and ErrSyncDisabled to 404.
var (
	ErrMissingToken    = errors.New("no bearer token presented")
	ErrInvalidToken    = errors.New("bearer token rejected")
	ErrExpiredToken    = errors.New("bearer token expired")
	ErrInvalidRole     = errors.New("unknown role")
	ErrGenerateToken   = errors.New("could not sign access token")
	ErrSyncCredentials = errors.New("could not issue sync credentials")
	ErrSyncDisabled    = errors.New("device sync is not configured")
)
