package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/security"
)

// ClaimsKey Context 中存储 Claims 的 key
const ClaimsKey = "jwt_claims"

// AuthConfig 认证配置
type AuthConfig struct {
	JWT security.JWTConfig `mapstructure:"jwt"`
	// Methods 需要认证的方法，为空时所有方法都需要认证
	Methods []string `mapstructure:"methods"`
	// SkipPaths 跳过认证的路径，以 * 结尾时按前缀匹配
	SkipPaths []string `mapstructure:"skip_paths"`
	// Roles 非空时令牌需至少拥有其中一个角色
	Roles []string `mapstructure:"roles"`
}

func (cfg *AuthConfig) applies(c *gin.Context) bool {
	path := c.Request.URL.Path
	for _, skip := range cfg.SkipPaths {
		if skip == path || (strings.HasSuffix(skip, "*") && strings.HasPrefix(path, strings.TrimSuffix(skip, "*"))) {
			return false
		}
	}
	return len(cfg.Methods) == 0 || slices.Contains(cfg.Methods, c.Request.Method)
}

// Auth JWT 认证中间件
func Auth(m *security.JWTManager, cfg *AuthConfig, l logger.Logger) gin.HandlerFunc {
	header := m.Config().HeaderName
	return func(c *gin.Context) {
		if !cfg.applies(c) {
			c.Next()
			return
		}

		claims, err := m.ValidateToken(c.GetHeader(header))
		if err != nil {
			l.Debug("request unauthorized", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    codeUnauthorized,
				"message": err.Error(),
				"data":    nil,
			})
			return
		}

		if len(cfg.Roles) > 0 && !slices.ContainsFunc(cfg.Roles, claims.HasRole) {
			l.Warn("request forbidden", "path", c.Request.URL.Path, "subject", claims.Subject)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    codeForbidden,
				"message": "forbidden: insufficient roles",
				"data":    nil,
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims 获取认证中间件写入的 Claims
func GetClaims(c *gin.Context) (*security.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.Claims)
	return claims, ok
}
