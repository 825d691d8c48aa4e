package authhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	authservice "github.com/matchops/matchops/app/modules/auth/application"
	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	AccessTokenCookie = "access_token"
)

// Handlers serves the auth HTTP endpoints.
type Handlers interface {
	HandleHTTPSignIn(w http.ResponseWriter, r *http.Request)
	HandleHTTPSignOut(w http.ResponseWriter, r *http.Request)
	HandleHTTPMe(w http.ResponseWriter, r *http.Request)
	HandleHTTPSyncCredentials(w http.ResponseWriter, r *http.Request)
}

// AuthHandlers implements the Handlers interface.
type AuthHandlers struct {
	service       authservice.Service
	logger        *slog.Logger
	tracer        trace.Tracer
	secureCookies bool
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(
	service authservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
	secureCookies bool,
) Handlers {
	return &AuthHandlers{
		service:       service,
		logger:        logger,
		tracer:        tracer,
		secureCookies: secureCookies,
	}
}

type meResponse struct {
	UserID      string          `json:"user_id"`
	Email       string          `json:"email,omitempty"`
	DisplayName string          `json:"display_name,omitempty"`
	Role        authdomain.Role `json:"role"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

func newMeResponse(claims *authdomain.Claims) meResponse {
	return meResponse{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		ExpiresAt:   claims.ExpiresAt,
	}
}

// HandleHTTPSignIn accepts an OAuth2 token document and opens a session.
func (h *AuthHandlers) HandleHTTPSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AuthHandlers.SignIn")
	defer span.End()

	var token oauth2.Token
	if err := json.NewDecoder(r.Body).Decode(&token); err != nil {
		http.Error(w, "invalid token document", http.StatusBadRequest)
		return
	}

	session, err := h.service.SignIn(ctx, &token)
	if err != nil {
		h.logger.WarnContext(ctx, "HTTP sign-in failed", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, authservice.ErrMissingToken):
			http.Error(w, "missing token", http.StatusBadRequest)
		case errors.Is(err, authservice.ErrInvalidToken), errors.Is(err, authservice.ErrExpiredToken):
			http.Error(w, "authentication failed", http.StatusUnauthorized)
		default:
			http.Error(w, "sign-in failed", http.StatusInternalServerError)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    session.Token.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Expires:  session.Token.Expiry,
	})

	writeJSON(w, http.StatusOK, newMeResponse(session.Claims))
}

// HandleHTTPSignOut ends the session and clears the cookie.
func (h *AuthHandlers) HandleHTTPSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.SignOut(ctx); err != nil {
		h.logger.ErrorContext(ctx, "HTTP sign-out failed", slog.String("error", err.Error()))
		http.Error(w, "sign-out failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleHTTPMe returns the caller's claims. Requires BearerAuthMiddleware.
func (h *AuthHandlers) HandleHTTPMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := authdomain.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, newMeResponse(claims))
}

// HandleHTTPSyncCredentials issues NATS credentials for cross-device sync.
func (h *AuthHandlers) HandleHTTPSyncCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := authdomain.ClaimsFromContext(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	creds, err := h.service.SyncCredentials(ctx, claims)
	if err != nil {
		if errors.Is(err, authservice.ErrSyncDisabled) {
			http.Error(w, "sync is not enabled", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Sync credentials failed",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "could not issue credentials", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, creds)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
