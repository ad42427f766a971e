package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tasktracker/pkg/metrics"
	"tasktracker/pkg/otel"
)

const defaultSlowThreshold = 100 * time.Millisecond

type queryKey struct{}

type queryInfo struct {
	start     time.Time
	sql       string
	operation string
	span      oteltrace.Span
}

// SlowQueryTracer 实现 pgx.QueryTracer：记录查询耗时、创建 db span、慢查询告警
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewSlowQueryTracer 创建慢查询 Tracer，slowThreshold 为 0 时使用 100ms
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowThreshold
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// TraceQueryStart 查询开始时的钩子
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := operationOf(data.SQL)
	ctx, span := otel.DBSpan(ctx, op, data.SQL)
	return context.WithValue(ctx, queryKey{}, &queryInfo{
		start:     time.Now(),
		sql:       data.SQL,
		operation: op,
		span:      span,
	})
}

// TraceQueryEnd 查询结束时的钩子
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	info, ok := ctx.Value(queryKey{}).(*queryInfo)
	if !ok {
		return
	}

	otel.EndDBSpan(info.span, data.Err)

	duration := time.Since(info.start)
	metrics.RecordDBQueryDuration(info.operation, duration)

	if duration <= t.slowThreshold {
		return
	}

	t.logger.Warn("slow-query",
		zap.String("sql", truncate(info.sql, 200)),
		zap.String("operation", info.operation),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)
	metrics.IncrementSlowQuery(info.operation)
}

// operationOf 取 SQL 的首个关键字作为操作名（select/insert/update/...）
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(fields[0])
	if op == "with" {
		return "cte"
	}
	return op
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
