package authservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	authjwt "github.com/matchops/matchops/app/modules/auth/infrastructure/jwt"
	authnats "github.com/matchops/matchops/app/modules/auth/infrastructure/nats"
	"github.com/matchops/matchops/app/modules/auth/infrastructure/permissions"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/nats-io/nkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/oauth2"
)

func newTestService(jwtProvider authjwt.Provider, builder authnats.UserJWTBuilder, users UserStore) *service {
	return NewService(jwtProvider, builder, users, Config{SubjectPrefix: "matchops.sync"},
		slog.New(slog.DiscardHandler), noop.NewTracerProvider().Tracer("test")).(*service)
}

func TestSignIn(t *testing.T) {
	tests := []struct {
		name        string
		token       *oauth2.Token
		validate    func(string) (*authdomain.Claims, error)
		signInErr   error
		expectErr   error
		expectTrace []string
	}{
		{
			name:        "valid token stores profile",
			token:       &oauth2.Token{AccessToken: "good", RefreshToken: "r1"},
			expectTrace: []string{"SignIn:coach-1"},
		},
		{
			name:      "missing token",
			expectErr: ErrMissingToken,
		},
		{
			name:      "empty access token",
			token:     &oauth2.Token{},
			expectErr: ErrMissingToken,
		},
		{
			name:  "expired token",
			token: &oauth2.Token{AccessToken: "old"},
			validate: func(string) (*authdomain.Claims, error) {
				return nil, authjwt.ErrExpiredToken
			},
			expectErr: ErrExpiredToken,
		},
		{
			name:  "forged token",
			token: &oauth2.Token{AccessToken: "forged"},
			validate: func(string) (*authdomain.Claims, error) {
				return nil, authjwt.ErrInvalidSignature
			},
			expectErr: ErrInvalidToken,
		},
		{
			name:        "profile store fails",
			token:       &oauth2.Token{AccessToken: "good"},
			signInErr:   errors.New("disk full"),
			expectTrace: []string{"SignIn:coach-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtProvider := &FakeJWTProvider{ValidateTokenFunc: tt.validate}
			users := &FakeUserStore{}
			if tt.signInErr != nil {
				users.SignInFunc = func(context.Context, types.UserData) (types.UserData, error) {
					return types.UserData{}, tt.signInErr
				}
			}
			svc := newTestService(jwtProvider, nil, users)

			session, err := svc.SignIn(context.Background(), tt.token)

			assert.Equal(t, tt.expectTrace, users.Trace())
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
				_, ok := svc.CurrentUser(context.Background())
				assert.False(t, ok)
			case tt.signInErr != nil:
				assert.ErrorIs(t, err, tt.signInErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "coach-1", session.Claims.UserID)
				assert.Equal(t, "r1", session.Token.RefreshToken)
				assert.False(t, session.Token.Expiry.IsZero(), "expiry defaults to the claims expiry")
				assert.True(t, session.User.IsAuthenticated)
				userID, ok := svc.CurrentUser(context.Background())
				assert.True(t, ok)
				assert.Equal(t, "coach-1", userID)
			}
		})
	}
}

func TestSignOut(t *testing.T) {
	users := &FakeUserStore{}
	svc := newTestService(&FakeJWTProvider{}, nil, users)
	_, err := svc.SignIn(context.Background(), &oauth2.Token{AccessToken: "good"})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(context.Background()))

	_, ok := svc.CurrentUser(context.Background())
	assert.False(t, ok)
	assert.Equal(t, []string{"SignIn:coach-1", "SignOut"}, users.Trace())
}

func TestCurrentUserPrefersRequestClaims(t *testing.T) {
	svc := newTestService(&FakeJWTProvider{}, nil, &FakeUserStore{})
	_, err := svc.SignIn(context.Background(), &oauth2.Token{AccessToken: "good"})
	require.NoError(t, err)

	ctx := authdomain.WithClaims(context.Background(), &authdomain.Claims{UserID: "request-user"})
	userID, ok := svc.CurrentUser(ctx)

	assert.True(t, ok)
	assert.Equal(t, "request-user", userID)
}

func TestIssueTokenRoundTripsThroughProvider(t *testing.T) {
	provider := authjwt.NewProvider("test-secret-at-least-32-chars-long!!", "matchops")
	svc := newTestService(provider, nil, &FakeUserStore{})

	tests := []struct {
		name       string
		claims     authdomain.Claims
		expectErr  error
		expectRole authdomain.Role
	}{
		{name: "role defaults to coach", claims: authdomain.Claims{UserID: "u1"}, expectRole: authdomain.RoleCoach},
		{name: "viewer", claims: authdomain.Claims{UserID: "u2", Role: authdomain.RoleViewer}, expectRole: authdomain.RoleViewer},
		{name: "unknown role", claims: authdomain.Claims{UserID: "u3", Role: "owner"}, expectErr: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.IssueToken(context.Background(), tt.claims, time.Hour)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bearer", token.TokenType)
			assert.True(t, token.Valid())

			claims, err := svc.ValidateToken(context.Background(), token.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.claims.UserID, claims.UserID)
			assert.Equal(t, tt.expectRole, claims.Role)
		})
	}
}

func TestSyncCredentials(t *testing.T) {
	claims := &authdomain.Claims{UserID: "coach.1", Role: authdomain.RoleCoach}

	t.Run("disabled without builder", func(t *testing.T) {
		svc := newTestService(&FakeJWTProvider{}, nil, &FakeUserStore{})
		_, err := svc.SyncCredentials(context.Background(), claims)
		assert.ErrorIs(t, err, ErrSyncDisabled)
	})

	t.Run("builder failure", func(t *testing.T) {
		builder := &FakeUserJWTBuilder{BuildUserJWTFunc: func(*authdomain.Claims, string, *permissions.Permissions, time.Duration) (string, error) {
			return "", errors.New("bad key")
		}}
		svc := newTestService(&FakeJWTProvider{}, builder, &FakeUserStore{})
		_, err := svc.SyncCredentials(context.Background(), claims)
		assert.ErrorIs(t, err, ErrSyncCredentials)
	})

	t.Run("scoped credentials", func(t *testing.T) {
		var gotKey string
		var gotPerms *permissions.Permissions
		builder := &FakeUserJWTBuilder{BuildUserJWTFunc: func(_ *authdomain.Claims, key string, perms *permissions.Permissions, ttl time.Duration) (string, error) {
			gotKey, gotPerms = key, perms
			assert.Equal(t, DefaultSyncTTL, ttl)
			return "user-jwt", nil
		}}
		svc := newTestService(&FakeJWTProvider{}, builder, &FakeUserStore{})

		creds, err := svc.SyncCredentials(context.Background(), claims)

		require.NoError(t, err)
		assert.Equal(t, "user-jwt", creds.UserJWT)
		assert.Equal(t, "matchops.sync.coach_1.changes", creds.Subject)
		assert.Equal(t, []string{"matchops.sync.coach_1.changes"}, gotPerms.Publish.Allow)

		kp, err := nkeys.FromSeed([]byte(creds.Seed))
		require.NoError(t, err)
		pub, err := kp.PublicKey()
		require.NoError(t, err)
		assert.Equal(t, gotKey, pub, "the JWT is issued for the returned seed")
	})
}
