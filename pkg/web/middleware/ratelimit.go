package middleware

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/cache/lru"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	// Burst 突发容量
	Burst int `mapstructure:"burst" validate:"gt=0"`
	// PerIP 按客户端 IP 分别限流，否则全局共享一个令牌桶
	PerIP bool `mapstructure:"per_ip"`
	// Methods 需要限流的方法，为空时限制所有方法
	Methods []string `mapstructure:"methods"`
	// SkipPaths 跳过的路径
	SkipPaths []string `mapstructure:"skip_paths"`
	// WaitTimeout > 0 时排队等待令牌，否则直接拒绝
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// MaxLimiters 按 IP 限流时最多保留的令牌桶数量
	MaxLimiters int `mapstructure:"max_limiters"`
	// LimiterTTL 令牌桶闲置过期时间
	LimiterTTL time.Duration `mapstructure:"limiter_ttl"`
}

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	cfg      RateLimitConfig
	global   *rate.Limiter
	limiters *lru.LRU[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg *RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:    *cfg,
		global: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger: l,
	}
	if cfg.PerIP {
		rl.limiters = lru.New[string, *rate.Limiter](&lru.Config{
			MaxSize:         cfg.MaxLimiters,
			DefaultTTL:      cfg.LimiterTTL,
			CleanupInterval: cfg.LimiterTTL,
		})
	}
	return rl
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if rl.limiters == nil || key == "" {
		return rl.global
	}
	return rl.limiters.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	})
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Wait 等待直到允许请求
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.limiter(key).Wait(ctx)
}

// Close 关闭限流器
func (rl *RateLimiter) Close() error {
	if rl.limiters == nil {
		return nil
	}
	return rl.limiters.Close()
}

func (rl *RateLimiter) applies(c *gin.Context) bool {
	if slices.Contains(rl.cfg.SkipPaths, c.Request.URL.Path) {
		return false
	}
	return len(rl.cfg.Methods) == 0 || slices.Contains(rl.cfg.Methods, c.Request.Method)
}

// RateLimit 限流中间件
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.applies(c) {
			c.Next()
			return
		}

		var key string
		if rl.cfg.PerIP {
			key = "ip:" + c.ClientIP()
		}

		if rl.cfg.WaitTimeout > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), rl.cfg.WaitTimeout)
			err := rl.Wait(ctx, key)
			cancel()
			if err != nil {
				rl.logger.Warn("rate limit wait timeout", "key", key, "path", c.Request.URL.Path, "error", err)
				abortWithRateLimitError(c)
				return
			}
		} else if !rl.Allow(key) {
			rl.logger.Warn("rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			abortWithRateLimitError(c)
			return
		}

		c.Next()
	}
}

func abortWithRateLimitError(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(1))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    codeRateLimited,
		"message": "too many requests",
		"data":    nil,
	})
}
