package main

import (
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/events"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/manager"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/trees"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/world"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/bt"
	"github.com/lk2023060901/xdooria-ai/pkg/config"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/mq/kafka"
	"github.com/lk2023060901/xdooria-ai/pkg/sentry"
	"github.com/lk2023060901/xdooria-ai/pkg/web"
)

func provideAppOptions(cfg *Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithLogConfig(&cfg.Log),
		app.WithNamedLoggers(cfg.Loggers),
	}
}

// provideMetricsConfig 提供指标配置
func provideMetricsConfig(cfg *Config) *metrics.Config {
	return &cfg.Metrics
}

// provideHTTPConfig 提供 HTTP 配置
func provideHTTPConfig(cfg *Config) *web.Config {
	return &cfg.HTTP
}

// provideWorld 按配置创建世界
func provideWorld(cfg *Config) *world.World {
	return world.New(cfg.World)
}

// provideSentry 未配置 DSN 时返回 nil
func provideSentry(cfg *Config) (*sentry.Client, error) {
	if !cfg.Sentry.Enabled() {
		return nil, nil
	}
	return sentry.New(&cfg.Sentry)
}

// provideObserver 指标始终启用，Sentry 可选
func provideObserver(mt *metrics.Metrics, sc *sentry.Client) bt.Observer {
	if sc == nil {
		return mt
	}
	return bt.MultiObserver(mt, metrics.NewPanicReporter(sc, map[string]string{"app": app.AppName}))
}

// provideEvents 未配置 Kafka broker 时返回 nil
func provideEvents(cfg *Config, a *app.BaseApp) (*events.Publisher, error) {
	if !cfg.Events.Kafka.Enabled() {
		return nil, nil
	}
	l := a.Logger("monster")
	producer, err := kafka.NewProducer(&cfg.Events.Kafka,
		kafka.WithLogger(l),
		kafka.WithMiddleware(kafka.RecoveryMiddleware(l), kafka.LoggingMiddleware(l)),
	)
	if err != nil {
		return nil, err
	}
	return events.New(&cfg.Events, producer, l), nil
}

// provideManager 创建怪物管理器，行为树执行与种群统计都上报到指标
func provideManager(
	cfg *Config,
	w *world.World,
	mt *metrics.Metrics,
	obs bt.Observer,
	pub *events.Publisher,
	a *app.BaseApp,
) (*manager.Manager, error) {
	timing, err := config.MergeConfig(trees.DefaultTiming(), &cfg.Timing)
	if err != nil {
		return nil, err
	}
	opts := []manager.Option{
		manager.WithLogger(a.Logger("monster")),
		manager.WithObserver(obs),
		manager.WithEngineConfig(&cfg.Engine),
		manager.WithTiming(timing),
		manager.WithReportHook(func(s manager.Stats) {
			mt.ObservePopulation(s.Population)
		}),
	}
	if pub != nil {
		opts = append(opts, manager.WithEventHook(pub.Hook))
	}
	return manager.New(cfg.Monsters, w, opts...)
}

func provideAppComponents(
	m *manager.Manager,
	srv *web.Server,
	mt *metrics.Metrics,
	sc *sentry.Client,
	pub *events.Publisher,
) (app.Components, error) {
	// 引擎状态指标按需读取
	if err := mt.BindEngine(m.Engine()); err != nil {
		return app.Components{}, err
	}

	comps := app.Components{
		Servers: []app.Server{
			m,   // 先启动引擎再开放 HTTP
			srv, // web.Server 实现了 app.Server
		},
		Closers: []app.Closer{
			mt,
		},
	}
	if sc != nil {
		comps.Closers = append(comps.Closers, sc)
	}
	// 逆序关闭，事件队列先于其他资源排空
	if pub != nil {
		comps.Closers = append(comps.Closers, pub)
	}
	return comps, nil
}
