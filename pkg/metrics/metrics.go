package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation"},
	)

	DBSlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// 权限判定结果
	AuthorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Permission gate decisions",
		},
		[]string{"permission", "decision"}, // decision: allow, deny, unauthenticated, error
	)

	TaskMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_mutations_total",
			Help: "Successful task and project mutations",
		},
		[]string{"entity", "operation"},
	)

	NotificationFanout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_fanout_total",
			Help: "Notification fan-out outcomes",
		},
		[]string{"type", "result"}, // result: success, failed
	)

	NotificationDelivery = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_total",
			Help: "Notification delivery attempts",
		},
		[]string{"type", "result"}, // result: sent, skipped, retry, dead_letter
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	OutboxEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events processed by the dispatcher",
		},
		[]string{"routing_key", "result"}, // result: sent, retry, failed, replayed
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(operation string) {
	DBSlowQueryCount.WithLabelValues(operation).Inc()
}

func RecordAuthorization(permission, decision string) {
	AuthorizationDecisions.WithLabelValues(permission, decision).Inc()
}

func IncrementMutation(entity, operation string) {
	TaskMutations.WithLabelValues(entity, operation).Inc()
}

func RecordFanout(notificationType, result string, count int) {
	NotificationFanout.WithLabelValues(notificationType, result).Add(float64(count))
}

func RecordDelivery(notificationType, result string) {
	NotificationDelivery.WithLabelValues(notificationType, result).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementOutbox(routingKey, result string) {
	OutboxEvents.WithLabelValues(routingKey, result).Inc()
}
