package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.TokenIssued(KindAccess)
	m.TokenIssued(KindAccess)
	m.TokenIssued(KindRefresh)
	m.RefreshOutcome(OutcomeRaceLost)
	m.Login(false)
	m.RPC("/demoauth.SessionService/Login", "OK")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues(KindAccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues(KindRefresh)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshOutcomes.WithLabelValues(OutcomeRaceLost)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.grpcRequestsTotal.WithLabelValues("/demoauth.SessionService/Login", "OK")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TokenIssued(KindAccess)
		m.RefreshOutcome(OutcomeRotated)
		m.Login(true)
		m.RPC("x", "OK")
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/things/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/things/:id", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpRequestsInFlight))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `demoauth_http_requests_total{endpoint="/api/things/:id",method="GET",status="200"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
