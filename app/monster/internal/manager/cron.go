package manager

import (
	"github.com/lk2023060901/xdooria-ai/pkg/logger"
	"github.com/robfig/cron/v3"
)

// cronLogger 将 cron 内部日志转到 logger.Logger
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

var _ cron.Logger = cronLogger{}
