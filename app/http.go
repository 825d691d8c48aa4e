package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	authservice "github.com/matchops/matchops/app/modules/auth/application"
	authhandlers "github.com/matchops/matchops/app/modules/auth/infrastructure/handlers"
	"github.com/matchops/matchops/app/modules/persistence"
	persistencehttp "github.com/matchops/matchops/app/modules/persistence/infrastructure/httpapi"
	"github.com/matchops/matchops/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// APIPrefix is where the persistence API is mounted.
const APIPrefix = "/api/v1"

func newMux(logger *slog.Logger, reg *prometheus.Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}))
	return r
}

// mountAPI mounts the persistence API. Without an auth service every route
// is open.
func mountAPI(r chi.Router, cfg *config.Config, module *persistence.Module, authSvc authservice.Service) {
	var authenticate, authorizeWrite persistencehttp.Middleware
	if authSvc != nil {
		authenticate = authhandlers.BearerAuthMiddleware(authSvc)
		authorizeWrite = authhandlers.RequireWriter
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(authhandlers.CORS(cfg.HTTP.AllowedOrigins))
		if cfg.HTTP.RateLimit > 0 {
			limiter := authhandlers.NewClientLimiter(rate.Limit(cfg.HTTP.RateLimit), max(cfg.HTTP.RateBurst, 1))
			r.Use(authhandlers.RateLimit(limiter))
		}
		r.Mount("/", module.HTTP.Routes(authenticate, authorizeWrite))
	})
}
