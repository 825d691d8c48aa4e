package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	authjwt "github.com/matchops/matchops/app/modules/auth/infrastructure/jwt"
	authnats "github.com/matchops/matchops/app/modules/auth/infrastructure/nats"
	"github.com/matchops/matchops/app/modules/auth/infrastructure/permissions"
	persistencenotify "github.com/matchops/matchops/app/modules/persistence/infrastructure/notify"
	"github.com/matchops/matchops/app/shared/types"
	"github.com/nats-io/nkeys"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

// Config holds the configuration for the auth service.
type Config struct {
	DefaultTTL    time.Duration
	SyncTTL       time.Duration
	SubjectPrefix string
}

const (
	DefaultTokenTTL = 24 * time.Hour
	DefaultSyncTTL  = 12 * time.Hour
)

// service implements the Service interface.
type service struct {
	jwtProvider       authjwt.Provider
	userJWTBuilder    authnats.UserJWTBuilder
	permissionBuilder *permissions.Builder
	users             UserStore
	config            Config
	logger            *slog.Logger
	tracer            trace.Tracer

	mu      sync.RWMutex
	session *Session
}

// NewService creates a new auth service. userJWTBuilder may be nil, which
// disables SyncCredentials.
func NewService(
	jwtProvider authjwt.Provider,
	userJWTBuilder authnats.UserJWTBuilder,
	users UserStore,
	config Config,
	logger *slog.Logger,
	tracer trace.Tracer,
) Service {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = DefaultTokenTTL
	}
	if config.SyncTTL == 0 {
		config.SyncTTL = DefaultSyncTTL
	}
	return &service{
		jwtProvider:       jwtProvider,
		userJWTBuilder:    userJWTBuilder,
		permissionBuilder: permissions.NewBuilder(config.SubjectPrefix),
		users:             users,
		config:            config,
		logger:            logger,
		tracer:            tracer,
	}
}

// SignIn validates token.AccessToken and records the session.
func (s *service) SignIn(ctx context.Context, token *oauth2.Token) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	if token == nil {
		return nil, ErrMissingToken
	}
	claims, err := s.ValidateToken(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.SignIn(ctx, types.UserData{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store user profile: %w", err)
	}

	stored := *token
	if stored.Expiry.IsZero() {
		stored.Expiry = claims.ExpiresAt
	}
	session := &Session{Claims: claims, Token: &stored, User: user}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "User signed in",
		slog.String("user_id", claims.UserID),
		slog.String("role", claims.Role.String()),
	)
	return session, nil
}

// SignOut clears the session and the stored profile.
func (s *service) SignOut(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	if err := s.users.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to clear user profile: %w", err)
	}
	s.logger.InfoContext(ctx, "User signed out")
	return nil
}

// ValidateToken validates a JWT token and returns the claims if valid.
func (s *service) ValidateToken(ctx context.Context, tokenString string) (*authdomain.Claims, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ValidateToken")
	defer span.End()

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.jwtProvider.ValidateToken(tokenString)
	if err != nil {
		s.logger.WarnContext(ctx, "Token validation failed", slog.String("error", err.Error()))
		if errors.Is(err, authjwt.ErrExpiredToken) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	s.logger.DebugContext(ctx, "Token validated successfully", slog.String("user_id", claims.UserID))
	return claims, nil
}

// IssueToken mints an access token. A zero ttl uses the configured default.
func (s *service) IssueToken(ctx context.Context, claims authdomain.Claims, ttl time.Duration) (*oauth2.Token, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.IssueToken")
	defer span.End()

	if claims.Role == "" {
		claims.Role = authdomain.RoleCoach
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, claims.Role)
	}
	if ttl == 0 {
		ttl = s.config.DefaultTTL
	}

	access, err := s.jwtProvider.GenerateToken(&claims, ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to generate token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrGenerateToken, err)
	}

	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(ttl),
	}, nil
}

// SyncCredentials creates a fresh user nkey and a user JWT scoped to the
// caller's change subject.
func (s *service) SyncCredentials(ctx context.Context, claims *authdomain.Claims) (*SyncCredentials, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.SyncCredentials")
	defer span.End()

	if s.userJWTBuilder == nil {
		return nil, ErrSyncDisabled
	}

	kp, err := nkeys.CreateUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncCredentials, err)
	}
	publicKey, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncCredentials, err)
	}
	seed, err := kp.Seed()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncCredentials, err)
	}

	userJWT, err := s.userJWTBuilder.BuildUserJWT(claims, publicKey, s.permissionBuilder.ForRole(claims), s.config.SyncTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncCredentials, err)
	}

	s.logger.InfoContext(ctx, "Issued sync credentials", slog.String("user_id", claims.UserID))
	return &SyncCredentials{
		UserJWT:   userJWT,
		Seed:      string(seed),
		Subject:   persistencenotify.Subject(s.config.SubjectPrefix, claims.UserID),
		ExpiresAt: time.Now().Add(s.config.SyncTTL),
	}, nil
}

// CurrentUser prefers request claims and falls back to the signed-in session.
func (s *service) CurrentUser(ctx context.Context) (string, bool) {
	if claims, ok := authdomain.ClaimsFromContext(ctx); ok {
		return claims.UserID, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Claims.IsExpired() {
		return "", false
	}
	return s.session.Claims.UserID, true
}
