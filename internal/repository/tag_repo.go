package repository

import (
	"context"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

type TagRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewTagRepository(conn db.DBTX, logger *zap.Logger) *TagRepository {
	return &TagRepository{db: conn, logger: logger}
}

// List 只返回 active 的标签，按名称排序
func (r *TagRepository) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, color, icon, created_by, created_on
		FROM tags
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, apperr.FromStore(err, "tag", 0)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.Icon, &t.CreatedBy, &t.CreatedOn); err != nil {
			return nil, apperr.FromStore(err, "tag", 0)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "tag", 0)
	}
	return tags, nil
}

// Create 名称唯一，重复时返回 Conflict
func (r *TagRepository) Create(ctx context.Context, t *model.Tag) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO tags (name, color, icon, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_on
	`, t.Name, t.Color, t.Icon, t.CreatedBy).Scan(&t.ID, &t.CreatedOn)
	if err != nil {
		r.logger.Error("Failed to insert tag", zap.String("name", t.Name), zap.Error(err))
		return apperr.FromStore(err, "tag", 0)
	}
	r.logger.Info("Tag inserted", zap.Int("id", t.ID), zap.String("name", t.Name))
	return nil
}
