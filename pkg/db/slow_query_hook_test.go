package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOperationOf(t *testing.T) {
	assert.Equal(t, "select", operationOf("  SELECT id FROM tasks"))
	assert.Equal(t, "insert", operationOf("\n\t\tINSERT INTO tasks (name) VALUES ($1)"))
	assert.Equal(t, "cte", operationOf("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "unknown", operationOf("   "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func TestSlowQueryTracer_WarnsAboveThreshold(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), time.Nanosecond)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(0)"})
	time.Sleep(time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "slow-query", entry.Message)
	assert.Equal(t, "select", entry.ContextMap()["operation"])
}

func TestSlowQueryTracer_QuietBelowThreshold(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), time.Hour)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE tasks SET name = $1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	assert.Equal(t, 0, logs.Len())
}

func TestSlowQueryTracer_DefaultThreshold(t *testing.T) {
	tracer := NewSlowQueryTracer(zap.NewNop(), 0)
	assert.Equal(t, defaultSlowThreshold, tracer.slowThreshold)
}
