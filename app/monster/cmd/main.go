package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/events"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/manager"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/trees"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/security"
	"github.com/lk2023060901/xdooria-ai/pkg/sentry"
	"github.com/lk2023060901/xdooria-ai/pkg/web"
	"github.com/spf13/pflag"
)

// Config 定义 Monster 服务的完整配置结构
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// 行为树引擎
	Engine bt.Config `mapstructure:"engine"`

	// 行为树时间参数
	Timing trees.Timing `mapstructure:"timing"`

	// 玩家与障碍物
	World world.Config `mapstructure:"world"`

	// 怪物生成与定时任务
	Monsters manager.Config `mapstructure:"monsters"`

	// HTTP 管理接口
	HTTP web.Config `mapstructure:"http"`

	// 指标
	Metrics metrics.Config `mapstructure:"metrics"`

	// 错误上报，dsn 为空时不启用
	Sentry sentry.Config `mapstructure:"sentry"`

	// 生命周期事件，kafka.brokers 为空时不启用
	Events events.Config `mapstructure:"events"`
}

var tokenSubject = pflag.String("issue-token", "", "issue an operator token for the given subject and exit")

// issueToken 按 HTTP 认证配置签发带有全部所需角色的令牌
func issueToken(cfg *Config, subject string) (string, error) {
	if cfg.HTTP.Auth == nil {
		return "", errors.New("http.auth is not configured")
	}
	m, err := security.NewJWTManager(&cfg.HTTP.Auth.JWT)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(subject, cfg.HTTP.Auth.Roles...)
}

func main() {
	var cfg Config

	// 1. 加载并校验配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if err := config.NewValidator().Validate(&cfg); err != nil {
		panic(err)
	}

	if *tokenSubject != "" {
		token, err := issueToken(&cfg, *tokenSubject)
		if err != nil {
			panic(err)
		}
		fmt.Println(token)
		return
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log, logger.WithHooks(logger.SensitiveDataHook([]string{"token", "authorization", "secret_key"})))
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)
	l.Info("config loaded", "path", app.GetConfigPath(), "log_path", app.GetLogPath())

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
