package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/internal/service/watcher"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/otel"
)

// Store 通知写入；每条通知与其 outbox 事件在同一事务中
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
}

type TaskLoader interface {
	Get(ctx context.Context, id int) (*model.Task, error)
}

type WatcherResolver interface {
	EffectiveWatchers(ctx context.Context, t *model.Task) ([]int, error)
}

type MemberLister interface {
	Members(ctx context.Context, projectID int) ([]int, error)
}

// Fanout 为一次变更的受众各写一条通知，操作者本人除外
type Fanout struct {
	store    Store
	tasks    TaskLoader
	watchers WatcherResolver
	members  MemberLister
	logger   *zap.Logger
}

func NewFanout(store Store, tasks TaskLoader, watchers WatcherResolver, members MemberLister, logger *zap.Logger) *Fanout {
	return &Fanout{
		store:    store,
		tasks:    tasks,
		watchers: watchers,
		members:  members,
		logger:   logger,
	}
}

// Notify 按主体解析受众：任务用有效关注者，项目用成员列表
func (f *Fanout) Notify(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType) ([]model.Notification, error) {
	audience, err := f.audience(ctx, subject)
	if err != nil {
		metrics.RecordFanout(string(typ), "error", 1)
		return nil, fmt.Errorf("resolve audience for %s %d: %w", subject.Kind, subject.ID, err)
	}
	return f.NotifyUsers(ctx, subject, actorID, typ, audience)
}

func (f *Fanout) audience(ctx context.Context, subject model.Subject) ([]int, error) {
	switch subject.Kind {
	case model.SubjectTask:
		t, err := f.tasks.Get(ctx, subject.ID)
		if err != nil {
			return nil, err
		}
		return f.watchers.EffectiveWatchers(ctx, t)
	case model.SubjectProject:
		return f.members.Members(ctx, subject.ID)
	}
	return nil, fmt.Errorf("unknown subject kind %q", subject.Kind)
}

// NotifyUsers 调用方已持有受众时使用。
// 遇到第一个失败的收件人即停止，返回已创建的通知和错误。
func (f *Fanout) NotifyUsers(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType, audience []int) ([]model.Notification, error) {
	if typ.SubjectKind() != subject.Kind {
		return nil, fmt.Errorf("notification type %q does not apply to %s", typ, subject.Kind)
	}

	ctx, span := otel.StartSpan(ctx, "notification.fanout")
	defer span.End()
	log := logger.WithTrace(ctx, f.logger)

	created := make([]model.Notification, 0, len(audience))
	for _, userID := range watcher.Unique(audience...) {
		if userID == actorID {
			continue
		}

		n := model.Notification{
			UserID:  userID,
			ActorID: actorID,
			Type:    typ,
			Subject: subject,
		}
		if err := f.store.Create(ctx, &n); err != nil {
			otel.RecordError(span, err)
			metrics.RecordFanout(string(typ), "ok", len(created))
			metrics.RecordFanout(string(typ), "error", 1)
			log.Warn("Notification fan-out stopped",
				zap.String("type", string(typ)),
				zap.String("subject_kind", string(subject.Kind)),
				zap.Int("subject_id", subject.ID),
				zap.Int("recipient", userID),
				zap.Int("created", len(created)),
				zap.Error(err),
			)
			return created, err
		}
		created = append(created, n)
	}

	metrics.RecordFanout(string(typ), "ok", len(created))
	log.Info("Notifications created",
		zap.String("type", string(typ)),
		zap.String("subject_kind", string(subject.Kind)),
		zap.Int("subject_id", subject.ID),
		zap.Int("count", len(created)),
	)
	return created, nil
}
