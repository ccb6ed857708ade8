//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/handler"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/pkg/app"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,
		provideAppOptions,

		// 2. 指标与错误上报
		provideMetricsConfig,
		metrics.New,
		provideSentry,
		provideObserver,

		// 3. 世界与怪物管理
		provideEvents,
		provideWorld,
		provideManager,

		// 4. HTTP 管理接口
		provideHTTPConfig,
		handler.NewServer,

		// 5. 组装
		provideAppComponents,
	))
}
