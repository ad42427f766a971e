package mq

import "time"

// RoutingKeyNotificationCreated 每条通知写入时产生的事件
const RoutingKeyNotificationCreated = "notification.created"

// NotificationCreatedPayload 由通知事务写入 outbox，worker 消费后投递
type NotificationCreatedPayload struct {
	NotificationID int       `json:"notification_id"`
	UserID         int       `json:"user_id"`
	ActorID        int       `json:"actor_id"`
	Type           string    `json:"type"`
	SubjectKind    string    `json:"subject_kind"`
	SubjectID      int       `json:"subject_id"`
	TraceID        string    `json:"trace_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationFailedPayload 超过重试次数后发往 DLQ
type NotificationFailedPayload struct {
	NotificationID int    `json:"notification_id"`
	UserID         int    `json:"user_id"`
	Type           string `json:"type"`
	Error          string `json:"error"`
	RetryCount     int    `json:"retry_count"`
}
