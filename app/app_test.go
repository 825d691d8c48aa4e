package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	authdomain "github.com/matchops/matchops/app/modules/auth/domain"
	"github.com/matchops/matchops/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "unused.db")
	cfg.JWT.Secret = "test-secret"
	cfg.HTTP.Address = "127.0.0.1:0"
	cfg.HTTP.RateLimit = 0
	return &cfg
}

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t), slog.New(slog.DiscardHandler), opts)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, srv *httptest.Server, path, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServeMux(t *testing.T) {
	a := newTestApp(t, Options{Serve: true})
	t.Cleanup(func() { a.Close() })
	srv := httptest.NewServer(a.HTTP.Handler)
	t.Cleanup(srv.Close)

	status, body := get(t, srv, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = get(t, srv, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")

	status, _ = get(t, srv, APIPrefix+"/games", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	token, err := a.AuthService().IssueToken(context.Background(), authdomain.Claims{UserID: "coach-1"}, time.Hour)
	require.NoError(t, err)

	status, body = get(t, srv, APIPrefix+"/games", token.AccessToken)
	assert.Equal(t, http.StatusOK, status, body)

	status, _ = get(t, srv, "/api/auth/me", token.AccessToken)
	assert.Equal(t, http.StatusOK, status)
}

func TestOneShotSkipsServing(t *testing.T) {
	a := newTestApp(t, Options{})
	defer a.Close()

	assert.Nil(t, a.Router)
	assert.Nil(t, a.HTTP)
	assert.NotNil(t, a.AuthService())
}

func TestSessionAutosaveReachesPersistence(t *testing.T) {
	a := newTestApp(t, Options{Serve: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		a.Close()
	})

	select {
	case <-a.Router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("event router did not start")
	}

	a.Session.SetTeamName("Lions")
	a.Session.SetGameID("game_1")

	require.Eventually(t, func() bool {
		g, err := a.Persistence.Service.LoadGame(ctx, "game_1")
		return err == nil && g.TeamName == "Lions"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"service":"matchops"`)
}
