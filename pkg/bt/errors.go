package bt

import "errors"

var (
	// ErrInvalidTickInterval tick 间隔必须大于 0
	ErrInvalidTickInterval = errors.New("bt: tick interval must be positive")

	// ErrInvalidWorkers worker 数量不能为负数
	ErrInvalidWorkers = errors.New("bt: workers must not be negative")

	// ErrEngineClosed 引擎已关闭
	ErrEngineClosed = errors.New("bt: engine is closed")
)
