package repository

import (
	"context"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

type CommentRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewCommentRepository(conn db.DBTX, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{db: conn, logger: logger}
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO comments (task_id, user_id, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_on, updated_on
	`, c.TaskID, c.UserID, c.Text).Scan(&c.ID, &c.CreatedOn, &c.UpdatedOn)
	if err != nil {
		r.logger.Error("Failed to insert comment", zap.Int("task_id", c.TaskID), zap.Error(err))
		return apperr.FromStore(err, "comment", 0)
	}
	r.logger.Info("Comment inserted", zap.Int("id", c.ID), zap.Int("task_id", c.TaskID))
	return nil
}

func (r *CommentRepository) ListByTask(ctx context.Context, taskID int) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, task_id, user_id, comment, created_on, updated_on
		FROM comments
		WHERE task_id = $1 AND active
		ORDER BY created_on, id
	`, taskID)
	if err != nil {
		return nil, apperr.FromStore(err, "comment", 0)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Text, &c.CreatedOn, &c.UpdatedOn); err != nil {
			return nil, apperr.FromStore(err, "comment", 0)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "comment", 0)
	}
	return comments, nil
}
