package authservice

import (
	"context"
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/app/shared/types"
	"golang.org/x/oauth2"
)

// Service defines the authentication service interface.
type Service interface {
	// SignIn validates the access token of an auth session and stores the
	// user profile.
	SignIn(ctx context.Context, token *oauth2.Token) (*Session, error)

	// SignOut forgets the session and clears the stored profile.
	SignOut(ctx context.Context) error

	// ValidateToken validates an access token and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error)

	// IssueToken mints an access token for claims.
	IssueToken(ctx context.Context, claims authdomain.Claims, ttl time.Duration) (*oauth2.Token, error)

	// SyncCredentials mints NATS credentials scoped to the user's change subject.
	SyncCredentials(ctx context.Context, claims *authdomain.Claims) (*SyncCredentials, error)

	// CurrentUser resolves the user of a request or of the signed-in session.
	CurrentUser(ctx context.Context) (string, bool)
}

// UserStore persists the signed-in user's profile.
type UserStore interface {
	SignIn(ctx context.Context, user types.UserData) (types.UserData, error)
	SignOut(ctx context.Context) error
}

// Session is the signed-in state of this process.
type Session struct {
	Claims *authdomain.Claims
	Token  *oauth2.Token
	User   types.UserData
}

// SyncCredentials let a device connect to NATS for change notifications.
type SyncCredentials struct {
	UserJWT   string    `json:"jwt"`
	Seed      string    `json:"seed"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}
