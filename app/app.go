// Package app wires configuration, observability and the modules into a
// runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/matchops/matchops/app/modules/auth"
	authservice "github.com/matchops/matchops/app/modules/auth/application"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/app/modules/persistence"
	sessionservice "github.com/matchops/matchops/app/modules/session/application"
	uiservice "github.com/matchops/matchops/app/modules/ui/application"
	"github.com/matchops/matchops/app/shared/eventbus"
	"github.com/matchops/matchops/app/shared/metrics"
	"github.com/matchops/matchops/config"
	"github.com/matchops/matchops/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Options select which parts of the application are started.
type Options struct {
	// Serve starts the event router and the HTTP API. One-shot commands
	// leave it off.
	Serve bool
}

// App holds the wired application.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Registry    *prometheus.Registry
	Metrics     metrics.OperationMetrics
	EventBus    eventbus.EventBus
	Router      *message.Router
	DB          *bun.DB
	Session     *sessionservice.Store
	UI          *uiservice.Store
	Persistence *persistence.Module
	// Auth is nil when no JWT secret is configured.
	Auth        *auth.Module
	HTTP        *http.Server

	authService authservice.Service
	wg          sync.WaitGroup
}

// New builds the application. Nothing is started until Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Tracer:   otel.Tracer(cfg.Observability.ServiceName),
		Registry: prometheus.NewRegistry(),
		EventBus: eventbus.NewInProcess(logger),
	}

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewPrometheus(a.Registry, "matchops")
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	a.Metrics = m

	if opts.Serve {
		a.Router, err = eventbus.NewRouter(logger)
		if err != nil {
			return nil, err
		}
	}

	if cfg.RemoteEnabled() {
		a.DB, err = database.ConnectPostgres(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, err
		}
	}

	a.Session = sessionservice.NewStore(a.EventBus, logger)
	a.UI = uiservice.NewStore()

	a.Persistence, err = persistence.NewPersistenceModule(ctx, cfg, logger, a.Metrics, a.Tracer,
		a.EventBus, a.Router, a.DB, a.currentUser, a.Session)
	if err != nil {
		a.closeDB()
		return nil, err
	}

	var mux chi.Router
	if opts.Serve {
		mux = newMux(logger, a.Registry)
	}

	if cfg.JWT.Secret != "" {
		a.Auth, err = auth.NewModule(ctx, cfg, logger, a.Tracer, a.Persistence.Service, mux)
		if err != nil {
			a.Persistence.Close()
			a.closeDB()
			return nil, err
		}
		a.authService = a.Auth.GetService()
	} else {
		logger.WarnContext(ctx, "No JWT secret configured; the API is unauthenticated")
	}

	if opts.Serve {
		mountAPI(mux, cfg, a.Persistence, a.authService)
		a.HTTP = &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// currentUser resolves the signed-in user for the remote backend. Without
// auth only claims already on ctx count.
func (a *App) currentUser(ctx context.Context) (string, bool) {
	if a.authService == nil {
		claims, ok := authdomain.ClaimsFromContext(ctx)
		if !ok {
			return "", false
		}
		return claims.UserID, claims.UserID != ""
	}
	return a.authService.CurrentUser(ctx)
}

// AuthService returns the auth service, or nil when auth is disabled.
func (a *App) AuthService() authservice.Service {
	return a.authService
}

// Run starts the modules, the event router and the HTTP server, then blocks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go a.Persistence.Run(ctx, &a.wg)
	if a.Auth != nil {
		a.wg.Add(1)
		go a.Auth.Run(ctx, &a.wg)
	}

	errCh := make(chan error, 2)
	if a.Router != nil {
		go func() {
			if err := a.Router.Run(ctx); err != nil {
				errCh <- fmt.Errorf("event router stopped: %w", err)
			}
		}()
	}
	if a.HTTP != nil {
		go func() {
			a.Logger.InfoContext(ctx, "HTTP server listening", slog.String("address", a.HTTP.Addr))
			if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server stopped: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown signal received")
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops everything Run started and releases connections.
func (a *App) Close() error {
	var errs []error

	if a.HTTP != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		errs = append(errs, a.HTTP.Shutdown(shutdownCtx))
		cancel()
	}
	if a.Auth != nil {
		errs = append(errs, a.Auth.Close())
	}
	errs = append(errs, a.Persistence.Close())
	a.wg.Wait()

	if a.Router != nil {
		errs = append(errs, a.Router.Close())
	}
	errs = append(errs, a.EventBus.Close())
	a.closeDB()

	return errors.Join(errs...)
}

func (a *App) closeDB() {
	if a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("Failed to close database", slog.String("error", err.Error()))
	}
}
