package handler

import (
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/manager"
	"github.com/lk2023060901/xdooria-ai/app/monster/internal/metrics"
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/lk2023060901/xdooria-ai/pkg/web"
	"github.com/lk2023060901/xdooria-ai/pkg/web/middleware"
)

// NewServer 创建挂载了全部路由的 HTTP 服务，mt 不为 nil 时同时采集请求指标
func NewServer(cfg *web.Config, m *manager.Manager, mt *metrics.Metrics, l logger.Logger) (*web.Server, error) {
	if l == nil {
		l = logger.NewNoop()
	}
	s, err := web.NewServer(cfg, l)
	if err != nil {
		return nil, err
	}
	if mt != nil {
		mw, err := middleware.Metrics(mt.Client())
		if err != nil {
			return nil, err
		}
		s.Router().Use(mw)
	}
	New(m, mt, l).Register(s.Router())
	return s, nil
}
