package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/security"
	"github.com/lk2023060901/xdooria-ai/pkg/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Mode = gin.TestMode
	return cfg
}

func newServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	s, err := NewServer(cfg, logger.NewNoop())
	require.NoError(t, err)
	return s
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestServerStartStop(t *testing.T) {
	s := newServer(t, testConfig())
	s.Router().GET("/ping", func(c *gin.Context) { Success(c, "pong") })

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrServerAlreadyStarted)

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrServerNotStarted)
}

func TestResponses(t *testing.T) {
	s := newServer(t, testConfig())
	s.Router().GET("/missing", func(c *gin.Context) { Error(c, CodeNotFound, "nope") })
	s.Router().GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode(t, w).Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, CodeInternalError, decode(t, w).Code)
}

func TestCodeToStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, CodeToStatus(CodeOK))
	assert.Equal(t, http.StatusBadRequest, CodeToStatus(CodeInvalidParams))
	assert.Equal(t, http.StatusNotFound, CodeToStatus(CodeNotFound))
	assert.Equal(t, http.StatusTooManyRequests, CodeToStatus(CodeRateLimited))
	assert.Equal(t, http.StatusUnauthorized, CodeToStatus(CodeUnauthorized))
	assert.Equal(t, http.StatusForbidden, CodeToStatus(CodeForbidden))
	assert.Equal(t, http.StatusInternalServerError, CodeToStatus(CodeInternalError))
}

type damageBody struct {
	Amount int `json:"amount" binding:"required,gt=0"`
}

func TestBindAndValidate(t *testing.T) {
	s := newServer(t, testConfig())
	s.Router().POST("/items/:id", func(c *gin.Context) {
		id, ok := ParamUint32(c, "id")
		if !ok {
			return
		}
		var body damageBody
		if !BindAndValidate(c, &body) {
			return
		}
		Success(c, gin.H{"id": id, "amount": body.Amount})
	})

	cases := []struct {
		path string
		body string
		code int
	}{
		{"/items/1", `{"amount":5}`, http.StatusOK},
		{"/items/x", `{"amount":5}`, http.StatusBadRequest},
		{"/items/1", `{"amount":0}`, http.StatusBadRequest},
		{"/items/1", `not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, tc.code, w.Code, "%s %s", tc.path, tc.body)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/items/1", strings.NewReader(`{"amount":0}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(w, req)
	assert.Contains(t, decode(t, w).Message, "amount")
}

func TestRateLimitedServer(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = &middleware.RateLimitConfig{
		RequestsPerSecond: 0.001,
		Burst:             1,
		Methods:           []string{http.MethodPost},
	}
	s := newServer(t, cfg)
	s.Router().POST("/act", func(c *gin.Context) { Success(c, nil) })
	s.Router().GET("/read", func(c *gin.Context) { Success(c, nil) })

	do := func(method, path string) int {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/act"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/act"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/read"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/read"))
}

func TestAuthServer(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = &middleware.AuthConfig{
		JWT:     security.JWTConfig{SecretKey: "secret"},
		Methods: []string{http.MethodDelete},
	}
	s := newServer(t, cfg)
	require.NotNil(t, s.JWT())
	s.Router().DELETE("/item", func(c *gin.Context) { Success(c, nil) })

	do := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/item", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		s.Handler().ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusUnauthorized, do(""))

	token, err := s.JWT().GenerateToken("ops")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(token))

	cfg = testConfig()
	cfg.Auth = &middleware.AuthConfig{}
	_, err = NewServer(cfg, logger.NewNoop())
	assert.ErrorIs(t, err, security.ErrSecretKeyEmpty)
}
