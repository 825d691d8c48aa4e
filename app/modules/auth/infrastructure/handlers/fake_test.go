package authhandlers

import (
	"context"
	"time"

	authservice "github.com/matchops/matchops/app/modules/auth/application"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"golang.org/x/oauth2"
)

// ------------------------
// Fake Service
// ------------------------

type FakeService struct {
	trace []string

	SignInFunc          func(ctx context.Context, token *oauth2.Token) (*authservice.Session, error)
	SignOutFunc         func(ctx context.Context) error
	ValidateTokenFunc   func(ctx context.Context, tokenString string) (*authdomain.Claims, error)
	IssueTokenFunc      func(ctx context.Context, claims authdomain.Claims, ttl time.Duration) (*oauth2.Token, error)
	SyncCredentialsFunc func(ctx context.Context, claims *authdomain.Claims) (*authservice.SyncCredentials, error)
	CurrentUserFunc     func(ctx context.Context) (string, bool)
}

func (f *FakeService) Trace() []string {
	return append([]string(nil), f.trace...)
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) SignIn(ctx context.Context, token *oauth2.Token) (*authservice.Session, error) {
	f.record("SignIn")
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, token)
	}
	claims := &authdomain.Claims{UserID: "coach-1", Role: authdomain.RoleCoach}
	return &authservice.Session{Claims: claims, Token: token}, nil
}

func (f *FakeService) SignOut(ctx context.Context) error {
	f.record("SignOut")
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *FakeService) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error) {
	f.record("ValidateToken:" + tokenString)
	if f.ValidateTokenFunc != nil {
		return f.ValidateTokenFunc(ctx, tokenString)
	}
	return &authdomain.Claims{UserID: "coach-1", Role: authdomain.RoleCoach}, nil
}

func (f *FakeService) IssueToken(ctx context.Context, claims authdomain.Claims, ttl time.Duration) (*oauth2.Token, error) {
	f.record("IssueToken")
	if f.IssueTokenFunc != nil {
		return f.IssueTokenFunc(ctx, claims, ttl)
	}
	return &oauth2.Token{AccessToken: "issued", TokenType: "Bearer"}, nil
}

func (f *FakeService) SyncCredentials(ctx context.Context, claims *authdomain.Claims) (*authservice.SyncCredentials, error) {
	f.record("SyncCredentials")
	if f.SyncCredentialsFunc != nil {
		return f.SyncCredentialsFunc(ctx, claims)
	}
	return &authservice.SyncCredentials{UserJWT: "jwt", Seed: "seed", Subject: "matchops.sync." + claims.UserID + ".changes"}, nil
}

func (f *FakeService) CurrentUser(ctx context.Context) (string, bool) {
	f.record("CurrentUser")
	if f.CurrentUserFunc != nil {
		return f.CurrentUserFunc(ctx)
	}
	return "", false
}

var _ authservice.Service = (*FakeService)(nil)
