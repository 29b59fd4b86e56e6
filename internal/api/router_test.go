package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/tenantd/internal/app"
	"github.com/coreplane/tenantd/internal/database/testutil"
	"github.com/coreplane/tenantd/internal/monitoring"
)

func testConfig() *app.Config {
	return &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	module, err := monitoring.NewModule(monitoring.Options{
		DisableGoCollector:      true,
		DisableProcessCollector: true,
	})
	require.NoError(t, err)
	monitoring.SetModule(module)

	router, err := NewRouter(db, testConfig(), module)
	require.NoError(t, err)
	return router
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/api/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouterHealthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	cfg := testConfig()
	cfg.Monitoring.Health.Enabled = false

	router, err := NewRouter(db, cfg, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "disabled")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// Trigger a request to generate metrics
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	metricsRec := httptest.NewRecorder()
	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(metricsRec, metricsReq)
	require.Equal(t, http.StatusOK, metricsRec.Code)

	body := metricsRec.Body.String()
	require.True(t,
		strings.Contains(body, `tenantd_api_latency_seconds_count{method="GET",path="health",status="200"}`),
		"metrics output missing latency series: %s", body)
}

func TestRouterNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "route /nope not found")
}

func TestRouterRequiresDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := NewRouter(nil, testConfig(), nil)
	require.Error(t, err)

	db := testutil.MustOpenTestDB(t)
	_, err = NewRouter(db, nil, nil)
	require.Error(t, err)
}
