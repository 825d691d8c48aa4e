package authnats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/app/modules/auth/infrastructure/permissions"
	"github.com/nats-io/nkeys"
)

// userJWTBuilder implements the UserJWTBuilder interface.
type userJWTBuilder struct {
	signingKey    nkeys.KeyPair
	issuerAccount string
}

// NewUserJWTBuilder creates a new UserJWTBuilder. signingKey is an account
// key; issuerAccount names the account when signingKey is one of its
// signing keys rather than the account identity key, and is empty otherwise.
func NewUserJWTBuilder(signingKey nkeys.KeyPair, issuerAccount string) UserJWTBuilder {
	return &userJWTBuilder{
		signingKey:    signingKey,
		issuerAccount: issuerAccount,
	}
}

// BuildUserJWT creates a NATS user JWT with the specified permissions.
func (b *userJWTBuilder) BuildUserJWT(claims *authdomain.Claims, userPublicKey string, perms *permissions.Permissions, ttl time.Duration) (string, error) {
	if !nkeys.IsValidPublicUserKey(userPublicKey) {
		return "", fmt.Errorf("invalid user public key %q", userPublicKey)
	}

	uc := NewUserClaims(userPublicKey)
	uc.ID = uuid.NewString()
	uc.Name = claims.UserID
	uc.Nats.IssuerAccount = b.issuerAccount
	if ttl > 0 {
		uc.Expires = time.Now().Add(ttl).Unix()
	}

	uc.Nats.Pub.Allow = perms.Publish.Allow
	uc.Nats.Pub.Deny = perms.Publish.Deny
	uc.Nats.Sub.Allow = perms.Subscribe.Allow
	uc.Nats.Sub.Deny = perms.Subscribe.Deny

	token, err := uc.Encode(b.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to encode user claims: %w", err)
	}

	return token, nil
}
