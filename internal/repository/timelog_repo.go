package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

const timeLogColumns = `id, task_id, user_id, log_date, spent_time, COALESCE(description, ''), activity_type_id, created_on, updated_on`

// TimeLogRepository 工时记录。每次写入都在同一事务里重算 tasks.spent_time。
type TimeLogRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewTimeLogRepository(conn db.DBTX, logger *zap.Logger) *TimeLogRepository {
	return &TimeLogRepository{db: conn, logger: logger}
}

func scanTimeLog(row pgx.Row) (*model.TimeLog, error) {
	var l model.TimeLog
	err := row.Scan(
		&l.ID,
		&l.TaskID,
		&l.UserID,
		&l.LogDate,
		&l.SpentTime,
		&l.Description,
		&l.ActivityTypeID,
		&l.CreatedOn,
		&l.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// rollupSpentTime 用 time_logs 的合计覆盖 tasks.spent_time
func rollupSpentTime(ctx context.Context, tx pgx.Tx, taskID int) error {
	if _, err := tx.Exec(ctx, `
		UPDATE tasks
		SET spent_time = (SELECT COALESCE(SUM(spent_time), 0) FROM time_logs WHERE task_id = $1)
		WHERE id = $1
	`, taskID); err != nil {
		return fmt.Errorf("rollup spent time: %w", err)
	}
	return nil
}

func (r *TimeLogRepository) Create(ctx context.Context, l *model.TimeLog) error {
	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO time_logs (task_id, user_id, log_date, spent_time, description, activity_type_id)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
			RETURNING id, created_on, updated_on
		`, l.TaskID, l.UserID, l.LogDate, l.SpentTime, l.Description, l.ActivityTypeID,
		).Scan(&l.ID, &l.CreatedOn, &l.UpdatedOn)
		if err != nil {
			return err
		}
		return rollupSpentTime(ctx, tx, l.TaskID)
	})
	if err != nil {
		r.logger.Error("Failed to insert time log", zap.Int("task_id", l.TaskID), zap.Error(err))
		return apperr.FromStore(err, "time log", 0)
	}

	r.logger.Info("Time log inserted",
		zap.Int("id", l.ID),
		zap.Int("task_id", l.TaskID),
		zap.Float64("spent_time", l.SpentTime),
	)
	return nil
}

func (r *TimeLogRepository) Get(ctx context.Context, id int) (*model.TimeLog, error) {
	l, err := scanTimeLog(r.db.QueryRow(ctx, `SELECT `+timeLogColumns+` FROM time_logs WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromStore(err, "time log", id)
	}
	return l, nil
}

// Update 覆盖日期、工时、描述和活动类型；task_id 与 user_id 不可改
func (r *TimeLogRepository) Update(ctx context.Context, l *model.TimeLog) error {
	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE time_logs
			SET log_date = $2, spent_time = $3, description = NULLIF($4, ''), activity_type_id = $5,
			    updated_on = NOW()
			WHERE id = $1
			RETURNING task_id, updated_on
		`, l.ID, l.LogDate, l.SpentTime, l.Description, l.ActivityTypeID).Scan(&l.TaskID, &l.UpdatedOn)
		if err != nil {
			return err
		}
		return rollupSpentTime(ctx, tx, l.TaskID)
	})
	if err != nil {
		r.logger.Error("Failed to update time log", zap.Int("id", l.ID), zap.Error(err))
		return apperr.FromStore(err, "time log", l.ID)
	}

	r.logger.Info("Time log updated", zap.Int("id", l.ID), zap.Int("task_id", l.TaskID))
	return nil
}

// Delete 物理删除，返回所属任务 ID
func (r *TimeLogRepository) Delete(ctx context.Context, id int) (int, error) {
	var taskID int
	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `DELETE FROM time_logs WHERE id = $1 RETURNING task_id`, id).Scan(&taskID); err != nil {
			return err
		}
		return rollupSpentTime(ctx, tx, taskID)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("time log", id)
	}
	if err != nil {
		r.logger.Error("Failed to delete time log", zap.Int("id", id), zap.Error(err))
		return 0, apperr.FromStore(err, "time log", id)
	}

	r.logger.Info("Time log deleted", zap.Int("id", id), zap.Int("task_id", taskID))
	return taskID, nil
}

func (r *TimeLogRepository) ListByTask(ctx context.Context, taskID int) ([]model.TimeLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+timeLogColumns+`
		FROM time_logs
		WHERE task_id = $1
		ORDER BY log_date DESC, id DESC
	`, taskID)
	if err != nil {
		return nil, apperr.FromStore(err, "time log", 0)
	}
	defer rows.Close()

	logs := []model.TimeLog{}
	for rows.Next() {
		l, err := scanTimeLog(rows)
		if err != nil {
			return nil, apperr.FromStore(err, "time log", 0)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "time log", 0)
	}
	return logs, nil
}
