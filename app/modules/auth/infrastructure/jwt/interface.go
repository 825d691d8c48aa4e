package authjwt

import (
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
)

// Provider defines the interface for access token operations.
type Provider interface {
	// GenerateToken signs claims into an access token valid for ttl.
	GenerateToken(claims *authdomain.Claims, ttl time.Duration) (string, error)

	// ValidateToken validates an access token and returns its claims.
	ValidateToken(tokenString string) (*authdomain.Claims, error)
}
