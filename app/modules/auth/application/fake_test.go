package authservice

import (
	"context"
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	authjwt "github.com/matchops/matchops/app/modules/auth/infrastructure/jwt"
	authnats "github.com/matchops/matchops/app/modules/auth/infrastructure/nats"
	"github.com/matchops/matchops/app/modules/auth/infrastructure/permissions"
	"github.com/matchops/matchops/app/shared/types"
)

// ------------------------
// Fake JWT Provider
// ------------------------

type FakeJWTProvider struct {
	trace []string

	GenerateTokenFunc func(claims *authdomain.Claims, ttl time.Duration) (string, error)
	ValidateTokenFunc func(tokenString string) (*authdomain.Claims, error)
}

func (f *FakeJWTProvider) Trace() []string {
	return f.trace
}

func (f *FakeJWTProvider) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeJWTProvider) GenerateToken(claims *authdomain.Claims, ttl time.Duration) (string, error) {
	f.record("GenerateToken")
	if f.GenerateTokenFunc != nil {
		return f.GenerateTokenFunc(claims, ttl)
	}
	return "fake-token", nil
}

func (f *FakeJWTProvider) ValidateToken(tokenString string) (*authdomain.Claims, error) {
	f.record("ValidateToken")
	if f.ValidateTokenFunc != nil {
		return f.ValidateTokenFunc(tokenString)
	}
	return &authdomain.Claims{
		UserID:      "coach-1",
		Email:       "coach@example.com",
		DisplayName: "Coach",
		Role:        authdomain.RoleCoach,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

// ------------------------
// Fake User JWT Builder
// ------------------------

type FakeUserJWTBuilder struct {
	trace []string

	BuildUserJWTFunc func(claims *authdomain.Claims, userPublicKey string, perms *permissions.Permissions, ttl time.Duration) (string, error)
}

func (f *FakeUserJWTBuilder) Trace() []string {
	return f.trace
}

func (f *FakeUserJWTBuilder) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeUserJWTBuilder) BuildUserJWT(claims *authdomain.Claims, userPublicKey string, perms *permissions.Permissions, ttl time.Duration) (string, error) {
	f.record("BuildUserJWT")
	if f.BuildUserJWTFunc != nil {
		return f.BuildUserJWTFunc(claims, userPublicKey, perms, ttl)
	}
	return "fake-nats-jwt", nil
}

// ------------------------
// Fake User Store
// ------------------------

type FakeUserStore struct {
	trace []string

	SignInFunc  func(ctx context.Context, user types.UserData) (types.UserData, error)
	SignOutFunc func(ctx context.Context) error
}

func (f *FakeUserStore) Trace() []string {
	return f.trace
}

func (f *FakeUserStore) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeUserStore) SignIn(ctx context.Context, user types.UserData) (types.UserData, error) {
	f.record("SignIn:" + user.UserID)
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, user)
	}
	user.IsAuthenticated = true
	return user, nil
}

func (f *FakeUserStore) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

var (
	_ authjwt.Provider        = (*FakeJWTProvider)(nil)
	_ authnats.UserJWTBuilder = (*FakeUserJWTBuilder)(nil)
	_ UserStore               = (*FakeUserStore)(nil)
)
