package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/prometheus"
	"github.com/lk2023060901/xdooria-ai/pkg/security"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(logger.NewNoop(), &RateLimitConfig{
		RequestsPerSecond: 0.001,
		Burst:             1,
		PerIP:             true,
		SkipPaths:         []string{"/healthz"},
		MaxLimiters:       16,
	})
	t.Cleanup(func() { _ = rl.Close() })

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := map[string]string{"X-Forwarded-For": "10.0.0.1"}
	b := map[string]string{"X-Forwarded-For": "10.0.0.2"}
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", a).Code)
	w := serve(r, http.MethodGet, "/x", a)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", b).Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", a).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", a).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://console.local"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "http://console.local"})
	assert.Equal(t, "http://console.local", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "http://evil.local"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetrics(t *testing.T) {
	client, err := prometheus.New(&prometheus.Config{Namespace: "test"})
	require.NoError(t, err)

	mw, err := Metrics(client)
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/items/1", nil)
	serve(r, http.MethodGet, "/items/2", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	n, err := testutil.GatherAndCount(client.Registry(), "test_ai_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Metrics(client)
	assert.ErrorIs(t, err, prometheus.ErrMetricExists)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNoop()), Logger(logger.NewNoop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestAuth(t *testing.T) {
	cfg := &AuthConfig{
		JWT:       security.JWTConfig{SecretKey: "secret"},
		Methods:   []string{http.MethodPost},
		SkipPaths: []string{"/public/*"},
		Roles:     []string{"admin", "operator"},
	}
	m, err := security.NewJWTManager(&cfg.JWT)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Auth(m, cfg, logger.NewNoop()))
	handler := func(c *gin.Context) {
		subject := ""
		if claims, ok := GetClaims(c); ok {
			subject = claims.Subject
		}
		c.String(http.StatusOK, subject)
	}
	r.GET("/x", handler)
	r.POST("/x", handler)
	r.POST("/public/ping", handler)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/x", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/public/ping", nil).Code)

	token, err := m.GenerateToken("ops", "operator")
	require.NoError(t, err)
	w := serve(r, http.MethodPost, "/x", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())

	viewer, err := m.GenerateToken("guest", "viewer")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/x", map[string]string{"Authorization": "Bearer " + viewer}).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/x", map[string]string{"Authorization": "Bearer junk"}).Code)
}
