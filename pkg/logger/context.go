package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段的函数类型
type ContextFieldExtractor func(ctx context.Context) []zap.Field

// DefaultContextExtractor 默认不提取任何字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	return nil
}

type fieldsKey struct{}

// ContextWithFields 把 key-value 字段附加到 context，由 FieldsContextExtractor 取出
func ContextWithFields(ctx context.Context, keysAndValues ...any) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(keysAndValues))
	merged = append(merged, prev...)
	merged = append(merged, keysAndValues...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsContextExtractor 提取 ContextWithFields 附加的字段
func FieldsContextExtractor(ctx context.Context) []zap.Field {
	kv, _ := ctx.Value(fieldsKey{}).([]any)
	return toZapFields(kv...)
}
