package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/util"
)

const handlerName = "notification_delivery"

type Deliverer interface {
	Deliver(ctx context.Context, p contractmq.NotificationCreatedPayload) error
}

// OnceGuard 由 util.Deduper 实现
type OnceGuard interface {
	AcquireOnce(ctx context.Context, handler string, id int64) bool
	Release(ctx context.Context, handler string, id int64)
}

// RetryTracker 由 util.RetryCounter 实现
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher 由 mq.Publisher 实现
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, body []byte, reason string) error
}

type NotificationCreatedHandler struct {
	sender     Deliverer
	deduper    OnceGuard
	retries    RetryTracker
	dlq        DeadLetterPublisher
	maxRetries int64
	logger     *zap.Logger
}

func NewNotificationCreatedHandler(
	sender Deliverer,
	deduper OnceGuard,
	retries RetryTracker,
	dlq DeadLetterPublisher,
	maxRetries int,
	logger *zap.Logger,
) *NotificationCreatedHandler {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &NotificationCreatedHandler{
		sender:     sender,
		deduper:    deduper,
		retries:    retries,
		dlq:        dlq,
		maxRetries: int64(maxRetries),
		logger:     logger,
	}
}

// Handle 返回 nil 时消息被 ack；只有可重试且未超过重试次数的错误才会返回，让消息重新入队
func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p contractmq.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal notification.created payload (non-retryable)", zap.Error(err))
		return h.deadLetter(ctx, raw, "json_decode_error")
	}

	id := int64(p.NotificationID)
	if !h.deduper.AcquireOnce(ctx, handlerName, id) {
		return nil
	}

	log = log.With(zap.Int("notification_id", p.NotificationID), zap.Int("user_id", p.UserID))
	retryKey := util.FormatRetryKey(handlerName, id)

	err := h.sender.Deliver(ctx, p)
	if err == nil {
		if rerr := h.retries.Reset(ctx, retryKey); rerr != nil {
			log.Warn("Failed to reset retry counter", zap.Error(rerr))
		}
		return nil
	}

	retryable, errType := util.IsRetryableError(err)
	if !retryable {
		log.Error("Notification delivery failed (non-retryable)", zap.String("error_type", errType), zap.Error(err))
		return h.deadLetter(ctx, h.failedPayload(p, err, 0), errType)
	}

	count, cerr := h.retries.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		log.Warn("Retry counter unavailable, assuming first attempt", zap.Error(cerr))
		count = 1
	}

	if util.ShouldRetry(count, h.maxRetries, retryable) {
		log.Warn("Notification delivery failed, requeueing",
			zap.String("error_type", errType),
			zap.Int64("retry", count),
			zap.Int64("max_retries", h.maxRetries),
			zap.Error(err),
		)
		h.deduper.Release(ctx, handlerName, id)
		return err
	}

	log.Error("Notification delivery exceeded max retries",
		zap.String("error_type", errType),
		zap.Int64("retry", count),
		zap.Error(err),
	)
	if rerr := h.retries.Reset(ctx, retryKey); rerr != nil {
		log.Warn("Failed to reset retry counter", zap.Error(rerr))
	}
	return h.deadLetter(ctx, h.failedPayload(p, err, count), "max_retries_exceeded")
}

func (h *NotificationCreatedHandler) failedPayload(p contractmq.NotificationCreatedPayload, err error, retries int64) []byte {
	body, _ := json.Marshal(contractmq.NotificationFailedPayload{
		NotificationID: p.NotificationID,
		UserID:         p.UserID,
		Type:           p.Type,
		Error:          err.Error(),
		RetryCount:     int(retries),
	})
	return body
}

// deadLetter DLQ 发布失败时返回错误，消息重新入队
func (h *NotificationCreatedHandler) deadLetter(ctx context.Context, body []byte, reason string) error {
	if err := h.dlq.PublishToDLQ(ctx, contractmq.RoutingKeyNotificationCreated, body, reason); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.String("reason", reason), zap.Error(err))
		return err
	}
	return nil
}
