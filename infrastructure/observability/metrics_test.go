package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetricsRegistered(t *testing.T) {
	RequestsTotal.WithLabelValues("GET", "/seed", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "/seed").Observe(0.1)
	RecordUpstream("seed", "200", 100*time.Millisecond)
	RecordStreamEvent("seed", "content")
	RecordFallback("seed", "timeout")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	expected := map[string]bool{
		"mrga_http_requests_total":           false,
		"mrga_http_request_duration_seconds": false,
		"mrga_streaming_connections_active":  false,
		"mrga_upstream_requests_total":       false,
		"mrga_upstream_latency_seconds":      false,
		"mrga_stream_events_total":           false,
		"mrga_fallback_responses_total":      false,
		"mrga_catalog_stations":              false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "metric %q not registered", name)
	}
}

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/radio-stations/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	before := counterValue(t, RequestsTotal, "GET", "/api/radio-stations/:id", "4xx")
	beforeCount := histogramCount(t, RequestDuration, "GET", "/api/radio-stations/:id")

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/radio-stations/"+id, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, 2.0, counterValue(t, RequestsTotal, "GET", "/api/radio-stations/:id", "4xx")-before)
	assert.Equal(t, uint64(2), histogramCount(t, RequestDuration, "GET", "/api/radio-stations/:id")-beforeCount)
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	router := gin.New()
	router.Use(Middleware())

	before := counterValue(t, RequestsTotal, "GET", "unmatched", "4xx")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, counterValue(t, RequestsTotal, "GET", "unmatched", "4xx")-before)
}

func TestRecordUpstream(t *testing.T) {
	before := counterValue(t, UpstreamRequestsTotal, "deepseek", "timeout")
	RecordUpstream("deepseek", "timeout", time.Second)
	assert.Equal(t, 1.0, counterValue(t, UpstreamRequestsTotal, "deepseek", "timeout")-before)
}

func TestHandler_ServesExposition(t *testing.T) {
	router := gin.New()
	router.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "mrga_streaming_connections_active"))
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	require.NoError(t, obs.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}
