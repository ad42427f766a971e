package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

// WatcherRepository 显式关注行；holder/assignee/creator 的隐式关注不落表
type WatcherRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewWatcherRepository(conn db.DBTX, logger *zap.Logger) *WatcherRepository {
	return &WatcherRepository{db: conn, logger: logger}
}

func (r *WatcherRepository) ListByTask(ctx context.Context, taskID int) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM watchers WHERE task_id = $1 ORDER BY user_id
	`, taskID)
	if err != nil {
		return nil, apperr.FromStore(err, "watcher", taskID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, apperr.FromStore(err, "watcher", taskID)
	}
	return ids, nil
}

func (r *WatcherRepository) Add(ctx context.Context, taskID, userID int) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO watchers (task_id, user_id) VALUES ($1, $2)
	`, taskID, userID); err != nil {
		return apperr.FromStore(err, "watcher", userID)
	}
	r.logger.Info("Watcher added", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return nil
}

func (r *WatcherRepository) Remove(ctx context.Context, taskID, userID int) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM watchers WHERE task_id = $1 AND user_id = $2
	`, taskID, userID)
	if err != nil {
		return apperr.FromStore(err, "watcher", userID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("watcher", userID)
	}
	r.logger.Info("Watcher removed", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return nil
}
