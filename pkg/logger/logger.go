package logger

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"tasktracker/pkg/trace"
)

var Log *zap.Logger

// NewLogger 终端下使用开发模式输出，否则使用 JSON 生产配置
func NewLogger() *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if isTerminal(os.Stdout.Fd()) && os.Getenv("LOG_FORMAT") != "json" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String(trace.TraceIDKey, traceID))
	}
	return logger
}
