package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxel-level/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *PrometheusMiddleware, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMiddleware("test_api", reg)

	r := gin.New()
	r.Use(NewRequestLogger(logging.NewWriterLogger("api", &buf, logging.INFO)).Handler())
	r.Use(pm.Handler())
	pm.RegisterMetricsEndpoint(r)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })
	return r, pm, &buf
}

func TestPrometheusMiddlewareCounts(t *testing.T) {
	r, pm, _ := newRouter(t)

	for _, path := range []string{"/ok", "/ok", "/fail", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "/fail", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.reqErrors.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.reqInflight))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_api_http_request_duration_seconds")
}

func TestRequestLoggerSetsTraceID(t *testing.T) {
	r, _, buf := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	traceID := w.Header().Get("X-Trace-Id")
	assert.NotEmpty(t, traceID)
	assert.Contains(t, buf.String(), "GET /ok 200")
	assert.Contains(t, buf.String(), traceID)
}
