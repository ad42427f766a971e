package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultInterval  = 24 * time.Hour
)

type Purger interface {
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

// Retention 定期软删除超过保留期的已读通知
type Retention struct {
	store     Purger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewRetention(store Purger, retention, interval time.Duration, logger *zap.Logger) *Retention {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Retention{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// PurgeOnce 执行一次清理，返回处理的条数
func (r *Retention) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.retention)
	n, err := r.store.PurgeRead(ctx, cutoff)
	if err != nil {
		r.logger.Error("Notification cleanup failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	r.logger.Info("Notification cleanup finished", zap.Time("cutoff", cutoff), zap.Int64("purged", n))
	return n, nil
}

// Run 启动时执行一次，之后按 interval 执行，直到 ctx 取消
func (r *Retention) Run(ctx context.Context) {
	r.logger.Info("Notification cleanup started",
		zap.Duration("retention", r.retention),
		zap.Duration("interval", r.interval),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_, _ = r.PurgeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Notification cleanup stopped")
			return
		case <-ticker.C:
			_, _ = r.PurgeOnce(ctx)
		}
	}
}
