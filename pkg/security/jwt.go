package security

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
)

// JWTConfig JWT 配置
type JWTConfig struct {
	// SecretKey HS* 算法的对称密钥
	SecretKey string `mapstructure:"secret_key"`

	// PublicKeyFile RS*/ES* 算法验证用公钥
	PublicKeyFile string `mapstructure:"public_key_file"`

	// PrivateKeyFile RS*/ES* 算法签名用私钥，只验证时可不配置
	PrivateKeyFile string `mapstructure:"private_key_file"`

	// Algorithm 默认 HS256
	Algorithm string `mapstructure:"algorithm" validate:"omitempty,oneof=HS256 HS384 HS512 RS256 RS384 RS512 ES256 ES384 ES512"`

	// ExpiresIn 默认 24 小时
	ExpiresIn time.Duration `mapstructure:"expires_in"`

	Issuer string `mapstructure:"issuer"`

	// TokenPrefix 默认 "Bearer "
	TokenPrefix string `mapstructure:"token_prefix"`

	// HeaderName 默认 "Authorization"
	HeaderName string `mapstructure:"header_name"`
}

// DefaultJWTConfig 返回默认 JWT 配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm:   "HS256",
		ExpiresIn:   24 * time.Hour,
		TokenPrefix: "Bearer ",
		HeaderName:  "Authorization",
	}
}

// Enabled 是否配置了任何密钥
func (c *JWTConfig) Enabled() bool {
	return c != nil && (c.SecretKey != "" || c.PublicKeyFile != "")
}

// Claims 运维令牌的声明
type Claims struct {
	jwt.RegisteredClaims

	Roles []string `json:"roles,omitempty"`
}

// HasRole 是否拥有指定角色
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// JWTManager 签发与验证令牌
type JWTManager struct {
	config     *JWTConfig
	clock      clockwork.Clock
	method     jwt.SigningMethod
	publicKey  any
	privateKey any
}

// JWTOption JWTManager 选项
type JWTOption func(*JWTManager)

// WithJWTClock 设置签发与校验使用的时钟
func WithJWTClock(c clockwork.Clock) JWTOption {
	return func(m *JWTManager) { m.clock = c }
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig, opts ...JWTOption) (*JWTManager, error) {
	newCfg, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}

	method := jwt.GetSigningMethod(strings.ToUpper(newCfg.Algorithm))
	if method == nil || method == jwt.SigningMethodNone {
		return nil, errors.Wrapf(ErrAlgorithmInvalid, "%q", newCfg.Algorithm)
	}

	m := &JWTManager{
		config: newCfg,
		clock:  clockwork.NewRealClock(),
		method: method,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadKeys(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *JWTManager) symmetric() bool {
	return strings.HasPrefix(m.method.Alg(), "HS")
}

func (m *JWTManager) loadKeys() error {
	if m.symmetric() {
		if m.config.SecretKey == "" {
			return ErrSecretKeyEmpty
		}
		return nil
	}

	if m.config.PublicKeyFile != "" {
		data, err := os.ReadFile(m.config.PublicKeyFile)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "read public key"), ErrPublicKeyLoad)
		}
		if strings.HasPrefix(m.method.Alg(), "RS") {
			m.publicKey, err = jwt.ParseRSAPublicKeyFromPEM(data)
		} else {
			m.publicKey, err = jwt.ParseECPublicKeyFromPEM(data)
		}
		if err != nil {
			return errors.Mark(err, ErrPublicKeyLoad)
		}
	}

	if m.config.PrivateKeyFile != "" {
		data, err := os.ReadFile(m.config.PrivateKeyFile)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "read private key"), ErrPrivateKeyLoad)
		}
		if strings.HasPrefix(m.method.Alg(), "RS") {
			m.privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(data)
		} else {
			m.privateKey, err = jwt.ParseECPrivateKeyFromPEM(data)
		}
		if err != nil {
			return errors.Mark(err, ErrPrivateKeyLoad)
		}
	}
	return nil
}

// GenerateToken 为 subject 签发令牌
func (m *JWTManager) GenerateToken(subject string, roles ...string) (string, error) {
	now := m.clock.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ExpiresIn)),
		},
		Roles: roles,
	}

	key := m.signingKey()
	if key == nil {
		return "", ErrSigningKeyMissing
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(key)
}

// ValidateToken 验证令牌，允许带前缀
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, m.config.TokenPrefix)
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithValidMethods([]string{m.method.Alg()}),
	}
	if m.config.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return m.verifyKey(), nil
	}, parserOpts...)
	if err != nil {
		return nil, wrapError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Config 返回生效配置
func (m *JWTManager) Config() *JWTConfig {
	return m.config
}

func (m *JWTManager) signingKey() any {
	if m.symmetric() {
		return []byte(m.config.SecretKey)
	}
	return m.privateKey
}

func (m *JWTManager) verifyKey() any {
	if m.symmetric() {
		return []byte(m.config.SecretKey)
	}
	return m.publicKey
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignatureInvalid
	default:
		return errors.Mark(errors.Wrap(err, "parse token"), ErrTokenInvalid)
	}
}
