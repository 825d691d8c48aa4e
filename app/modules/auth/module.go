package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	authservice "github.com/matchops/matchops/app/modules/auth/application"
	authhandlers "github.com/matchops/matchops/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/matchops/matchops/app/modules/auth/infrastructure/jwt"
	authnats "github.com/matchops/matchops/app/modules/auth/infrastructure/nats"
	"github.com/matchops/matchops/config"
	"github.com/nats-io/nkeys"
	"go.opentelemetry.io/otel/trace"
)

// Module represents the auth module.
type Module struct {
	config     *config.Config
	service    authservice.Service
	handlers   authhandlers.Handlers
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates a new auth module and mounts its routes on httpRouter
// when one is given.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	tracer trace.Tracer,
	users authservice.UserStore,
	httpRouter chi.Router,
) (*Module, error) {
	logger.InfoContext(ctx, "Initializing auth module")

	jwtProvider := authjwt.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Sync credentials are only minted when an account seed is configured.
	var userJWTBuilder authnats.UserJWTBuilder
	if cfg.NATS.AccountSeed != "" {
		accountKey, err := nkeys.FromSeed([]byte(cfg.NATS.AccountSeed))
		if err != nil {
			return nil, fmt.Errorf("failed to parse account key: %w", err)
		}
		userJWTBuilder = authnats.NewUserJWTBuilder(accountKey, "")
	}

	service := authservice.NewService(
		jwtProvider,
		userJWTBuilder,
		users,
		authservice.Config{
			DefaultTTL:    cfg.JWT.DefaultTTL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		},
		logger,
		tracer,
	)

	secureCookies := cfg.Observability.Environment != "development"
	if strings.HasPrefix(cfg.HTTP.Address, "localhost") {
		secureCookies = false
	}

	handlers := authhandlers.NewAuthHandlers(service, logger, tracer, secureCookies)

	if httpRouter != nil {
		limiter := authhandlers.NewClientLimiter(5, 10)
		httpRouter.Route("/api/auth", func(r chi.Router) {
			r.Use(authhandlers.CORS(cfg.HTTP.AllowedOrigins))
			r.Use(authhandlers.RateLimit(limiter))

			// Public routes
			r.Post("/session", handlers.HandleHTTPSignIn)

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(authhandlers.BearerAuthMiddleware(service))
				r.Post("/logout", handlers.HandleHTTPSignOut)
				r.Get("/me", handlers.HandleHTTPMe)
				r.Get("/sync-credentials", handlers.HandleHTTPSyncCredentials)
			})
		})
	}

	return &Module{
		config:   cfg,
		service:  service,
		handlers: handlers,
		logger:   logger,
	}, nil
}

// Run blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting auth module",
		slog.Bool("sync_credentials", m.config.NATS.AccountSeed != ""),
	)

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Auth module goroutine stopped")
}

// Close stops the auth module.
func (m *Module) Close() error {
	m.logger.Info("Stopping auth module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}

// GetService returns the auth service for use by other modules.
func (m *Module) GetService() authservice.Service {
	return m.service
}
