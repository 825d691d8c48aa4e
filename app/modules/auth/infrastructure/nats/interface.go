package authnats

import (
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/app/modules/auth/infrastructure/permissions"
)

// UserJWTBuilder defines the interface for building NATS user JWTs.
type UserJWTBuilder interface {
	// BuildUserJWT creates a NATS user JWT for userPublicKey with the specified permissions.
	BuildUserJWT(claims *authdomain.Claims, userPublicKey string, perms *permissions.Permissions, ttl time.Duration) (string, error)
}
