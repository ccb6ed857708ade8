package app

import (
	"github.com/google/wire"
)

// Application 组装完成、可运行的应用
type Application interface {
	Run() error
	Stop()
	Shutdown() error
}

var _ Application = (*BaseApp)(nil)

// Components 由依赖注入收集的服务与资源
type Components struct {
	Servers []Server
	Closers []Closer
}

// ProviderSet 供 wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
	Assemble,
)

// Assemble 将组件挂到 BaseApp 上，Closer 按逆序关闭
func Assemble(a *BaseApp, comps Components) Application {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	return a
}
