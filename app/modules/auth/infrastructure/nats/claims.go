package authnats

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nkeys"
)

// UserClaims represents NATS user JWT claims.
type UserClaims struct {
	ID       string          `json:"jti,omitempty"`
	Subject  string          `json:"sub"`
	Audience string          `json:"aud,omitempty"`
	Expires  int64           `json:"exp,omitempty"`
	IssuedAt int64           `json:"iat"`
	Issuer   string          `json:"iss"`
	Name     string          `json:"name,omitempty"`
	Nats     UserPermissions `json:"nats"`
}

// UserPermissions contains the NATS permissions for a user.
// Type, version and issuer_account live inside the nats object.
type UserPermissions struct {
	Pub           PermissionRules `json:"pub,omitempty"`
	Sub           PermissionRules `json:"sub,omitempty"`
	Resp          *RespPermission `json:"resp,omitempty"`
	IssuerAccount string          `json:"issuer_account,omitempty"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
}

// PermissionRules contains allow/deny patterns.
type PermissionRules struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// RespPermission allows request/reply patterns.
type RespPermission struct {
	Max int `json:"max,omitempty"`
	TTL int `json:"ttl,omitempty"`
}

// NewUserClaims creates a new UserClaims with defaults.
func NewUserClaims(publicKey string) *UserClaims {
	return &UserClaims{
		Subject:  publicKey,
		IssuedAt: time.Now().Unix(),
		Nats: UserPermissions{
			Type:    "user",
			Version: 2,
		},
	}
}

// Encode encodes the claims as a JWT signed by kp, which becomes the issuer.
func (c *UserClaims) Encode(kp nkeys.KeyPair) (string, error) {
	issuer, err := kp.PublicKey()
	if err != nil {
		return "", fmt.Errorf("failed to get issuer public key: %w", err)
	}
	c.Issuer = issuer

	header := map[string]string{
		"typ": "JWT",
		"alg": "ed25519-nkey",
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON)

	sig, err := kp.Sign([]byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// DecodeUserClaims parses a user JWT and verifies its signature against the issuer.
func DecodeUserClaims(token string) (*UserClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed user JWT")
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed user JWT claims: %w", err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed user JWT signature: %w", err)
	}

	var claims UserClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("malformed user JWT claims: %w", err)
	}

	issuer, err := nkeys.FromPublicKey(claims.Issuer)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer: %w", err)
	}
	if err := issuer.Verify([]byte(parts[0]+"."+parts[1]), sig); err != nil {
		return nil, fmt.Errorf("invalid user JWT signature: %w", err)
	}
	return &claims, nil
}
