package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/web/middleware"
)

// Config Web 服务配置
type Config struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins 为空时不挂载跨域中间件
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimit 为空时不限流
	RateLimit *middleware.RateLimitConfig `mapstructure:"rate_limit"`
	// Auth 为空时不做认证
	Auth *middleware.AuthConfig `mapstructure:"auth"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}
