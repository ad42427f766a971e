package notification

import (
	"context"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
)

type InboxStore interface {
	ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id int) error
	MarkAllRead(ctx context.Context, userID int) (int64, error)
	SoftDelete(ctx context.Context, userID, id int) error
}

// Inbox 用户读取和管理自己的通知，不需要额外权限
type Inbox struct {
	store  InboxStore
	logger *zap.Logger
}

func NewInbox(store InboxStore, logger *zap.Logger) *Inbox {
	return &Inbox{store: store, logger: logger}
}

func (s *Inbox) List(ctx context.Context, callerID int, unreadOnly bool) ([]model.Notification, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	return s.store.ListByUser(ctx, callerID, unreadOnly)
}

func (s *Inbox) MarkRead(ctx context.Context, callerID, id int) error {
	if callerID <= 0 {
		return apperr.Unauthenticated()
	}
	return s.store.MarkRead(ctx, callerID, id)
}

func (s *Inbox) MarkAllRead(ctx context.Context, callerID int) (int64, error) {
	if callerID <= 0 {
		return 0, apperr.Unauthenticated()
	}
	n, err := s.store.MarkAllRead(ctx, callerID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Notifications marked as read", zap.Int("user_id", callerID), zap.Int64("count", n))
	return n, nil
}

// Delete 软删除
func (s *Inbox) Delete(ctx context.Context, callerID, id int) error {
	if callerID <= 0 {
		return apperr.Unauthenticated()
	}
	return s.store.SoftDelete(ctx, callerID, id)
}
