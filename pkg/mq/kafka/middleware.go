package kafka

import (
	"context"
	"time"

	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// LoggingMiddleware 发布日志中间件
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)

		duration := time.Since(start)
		if err != nil {
			log.Error("message publish failed",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", duration,
				"error", err,
			)
		} else {
			log.Debug("message published",
				"topic", msg.Topic,
				"key", string(msg.Key),
				"duration", duration,
			)
		}
		return err
	}
}

// RecoveryMiddleware 捕获发布过程中的 panic
func RecoveryMiddleware(log logger.Logger) Middleware {
	return func(ctx context.Context, msg *Message, next PublishFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("producer panic recovered",
					"topic", msg.Topic,
					"key", string(msg.Key),
					"panic", r,
				)
				err = ErrProducerPanic
			}
		}()
		return next(ctx, msg)
	}
}
