package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/app"
	iauth "github.com/guildhall-io/guildhall/internal/auth"
	"github.com/guildhall-io/guildhall/internal/database/testutil"
	"github.com/guildhall-io/guildhall/internal/permissions"
)

func newRouterDeps(t *testing.T) Dependencies {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	store, err := permissions.NewStore(db)
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(db)
	require.NoError(t, err)
	engine, err := permissions.NewEngine(store, resolver)
	require.NoError(t, err)

	return Dependencies{
		DB:     db,
		JWT:    jwtSvc,
		Config: &app.Config{},
		Engine: engine,
	}
}

func TestNewRouterValidation(t *testing.T) {
	deps := newRouterDeps(t)

	missingDB := deps
	missingDB.DB = nil
	_, err := NewRouter(missingDB)
	require.Error(t, err)

	missingJWT := deps
	missingJWT.JWT = nil
	_, err = NewRouter(missingJWT)
	require.Error(t, err)

	missingEngine := deps
	missingEngine.Engine = nil
	_, err = NewRouter(missingEngine)
	require.Error(t, err)
}

func TestRouterServesHealthAndUnknownRoutes(t *testing.T) {
	deps := newRouterDeps(t)

	router, err := NewRouter(deps)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterMountsMetricsEndpoint(t *testing.T) {
	deps := newRouterDeps(t)
	deps.Config.Monitoring.Prometheus.Enabled = true

	router, err := NewRouter(deps)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouterRateLimiting(t *testing.T) {
	deps := newRouterDeps(t)
	deps.Config.Server.RateLimit = app.RateLimitConfig{
		Enabled:     true,
		MaxRequests: 2,
		Window:      time.Minute,
	}

	router, err := NewRouter(deps)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}
