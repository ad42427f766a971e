package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

const (
	// TraceIDKey 日志与消息 payload 中使用的字段名
	TraceIDKey = "trace_id"
	headerName = "X-Trace-ID"
)

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromHeader 取请求头中的 trace_id，不合法或为空时生成新的
func FromHeader(headerValue string) string {
	if _, err := uuid.Parse(headerValue); err == nil {
		return headerValue
	}
	return GenerateTraceID()
}

// HeaderName 返回 trace ID 的 HTTP header 名称
func HeaderName() string {
	return headerName
}
