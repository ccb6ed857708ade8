package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/security"
	"github.com/lk2023060901/xdooria-ai/pkg/web/middleware"
	"github.com/lk2023060901/xdooria-ai/pkg/web/validator"
)

// Server 基于 gin 的 HTTP 服务，实现 app.Server
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	limiter *middleware.RateLimiter
	jwt     *security.JWTManager

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer 创建 Web 服务并挂载基础中间件
func NewServer(cfg *Config, l logger.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l == nil {
		l = logger.Default()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	validator.Init()

	s := &Server{
		engine: gin.New(),
		config: cfg,
		logger: l.Named("web.server"),
	}

	s.engine.Use(middleware.Recovery(s.logger))
	s.engine.Use(middleware.Logger(s.logger))
	if len(cfg.CORSOrigins) > 0 {
		s.engine.Use(middleware.CORS(cfg.CORSOrigins))
	}
	if cfg.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(s.logger, cfg.RateLimit)
		s.engine.Use(middleware.RateLimit(s.limiter))
	}
	if cfg.Auth != nil {
		m, err := security.NewJWTManager(&cfg.Auth.JWT)
		if err != nil {
			if s.limiter != nil {
				_ = s.limiter.Close()
			}
			return nil, err
		}
		s.jwt = m
		s.engine.Use(middleware.Auth(m, cfg.Auth, s.logger))
	}
	return s, nil
}

// JWT 返回令牌管理器，未启用认证时为 nil
func (s *Server) JWT() *security.JWTManager {
	return s.jwt
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 实际监听地址，未启动时返回配置地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Start 监听端口并在后台提供服务，不阻塞
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.config.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	s.done = make(chan struct{})

	srv, done := s.server, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server exited", "error", err)
		}
	}()

	s.logger.Info("http server started", "addr", ln.Addr().String())
	return nil
}

// Stop 在 ShutdownTimeout 内优雅关闭
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotStarted
	}

	ctx := context.Background()
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	err := srv.Shutdown(ctx)
	<-done
	if s.limiter != nil {
		_ = s.limiter.Close()
	}
	if err != nil {
		return fmt.Errorf("web: server forced to shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
