package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jobhive/jobhive/internal/app"
	iauth "github.com/jobhive/jobhive/internal/auth"
	testutil "github.com/jobhive/jobhive/internal/database/testutil"
	"github.com/jobhive/jobhive/internal/monitoring"
	"github.com/jobhive/jobhive/internal/permissions"
)

func newTestRouter(t *testing.T, cfg *app.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "test", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, nil)
	require.NoError(t, err)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router := newTestRouter(t, &app.Config{})

	w := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/roles"},
		{http.MethodGet, "/api/me/permissions"},
		{http.MethodPost, "/api/jobs/bulk-moderate"},
		{http.MethodGet, "/api/audit"},
	} {
		w = serve(router, route.method, route.path)
		require.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}

	w = serve(router, http.MethodGet, "/api/unknown")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ReadinessChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", Issuer: "test", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, &app.Config{}, nil, WithReadinessChecks(
		monitoring.NewCheck("maintenance", func(context.Context) monitoring.CheckResult {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "grant_expiry: stale run"}
		}),
	))
	require.NoError(t, err)

	w := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"status":"degraded"`)
	require.Contains(t, w.Body.String(), `"component":"database"`)
	require.Contains(t, w.Body.String(), "grant_expiry: stale run")

	w = serve(router, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &app.Config{
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true}},
	})

	rec := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	metricsRec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, metricsRec.Code)
	require.Contains(t, metricsRec.Body.String(), `jobhive_api_latency_seconds_count{method="GET",path="/health",status="200"}`)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := newTestRouter(t, &app.Config{})

	w := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RateLimitApplied(t *testing.T) {
	router := newTestRouter(t, &app.Config{
		RateLimit: app.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute},
	})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)

	w := serve(router, http.MethodGet, "/health")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	_, err := NewRouter(nil, nil, nil, nil)
	require.ErrorContains(t, err, "database")

	db := testutil.MustOpenTestDB(t)
	_, err = NewRouter(db, nil, &app.Config{}, nil)
	require.ErrorContains(t, err, "jwt")

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	_, err = NewRouter(db, jwtSvc, nil, nil)
	require.ErrorContains(t, err, "config")
}

func TestRouteTableGuardsEveryRoute(t *testing.T) {
	routes := routeTable(routeHandlers{})
	require.Len(t, routes, 26)

	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		key := route.Method + " " + route.Path
		require.False(t, seen[key], "duplicate route %s", key)
		seen[key] = true

		if strings.HasPrefix(route.Path, "/jobs") || (strings.HasPrefix(route.Path, "/companies") && route.Method != http.MethodPost) {
			require.True(t, route.Requirement.CompanyScoped, key)
		}
	}

	byKey := func(method, path string) permissions.Requirement {
		for _, route := range routes {
			if route.Method == method && route.Path == path {
				return route.Requirement
			}
		}
		t.Fatalf("route %s %s not registered", method, path)
		return permissions.Requirement{}
	}

	require.Equal(t, []string{permissions.RoleSuperAdmin}, byKey(http.MethodDelete, "/roles/:id").AnyRoles)
	require.Equal(t, []string{permissions.RoleSuperAdmin}, byKey(http.MethodPost, "/permissions").AnyRoles)
	require.Equal(t, []string{permissions.RoleSuperAdmin, permissions.RoleAdmin}, byKey(http.MethodGet, "/audit").AnyRoles)
	require.Equal(t, []string{permissions.CreateAdmin}, byKey(http.MethodPost, "/companies/:id/admins").Permissions)
	require.Equal(t, []string{permissions.ManageSettings}, byKey(http.MethodGet, "/security/audit").Permissions)
	require.Equal(t, []string{permissions.RoleSuperAdmin}, byKey(http.MethodGet, "/security/audit").AnyRoles)
	require.Empty(t, byKey(http.MethodGet, "/me/permissions").Permissions)
	require.False(t, byKey(http.MethodPost, "/companies").CompanyScoped)
	require.True(t, byKey(http.MethodGet, "/users/:id/grants").CompanyScoped)
	require.True(t, byKey(http.MethodGet, "/audit").CompanyScoped)
}
