package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

// ProjectFilters 项目列表允许的查询参数
var ProjectFilters = filter.Whitelist{
	"id":              {Column: "p.id", Op: filter.OpEq, Kind: filter.KindInt},
	"status":          {Column: "p.status", Op: filter.OpEq, Kind: filter.KindProjectStatus},
	"created_by":      {Column: "p.created_by", Op: filter.OpEq, Kind: filter.KindInt},
	"parent_id":       {Column: "p.parent_id", Op: filter.OpEq, Kind: filter.KindInt},
	"start_date_from": {Column: "p.start_date", Op: filter.OpGte, Kind: filter.KindDate},
	"start_date_to":   {Column: "p.start_date", Op: filter.OpLte, Kind: filter.KindDate},
	"due_date_from":   {Column: "p.due_date", Op: filter.OpGte, Kind: filter.KindDate},
	"due_date_to":     {Column: "p.due_date", Op: filter.OpLte, Kind: filter.KindDate},
}

const projectColumns = `
	p.id, p.name, COALESCE(p.description, ''), p.start_date, p.due_date, p.end_date,
	p.status, p.parent_id, p.created_by, p.created_on, p.updated_on`

type ProjectRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewProjectRepository(conn db.DBTX, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: conn, logger: logger}
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.DueDate,
		&p.EndDate,
		&p.Status,
		&p.ParentID,
		&p.CreatedBy,
		&p.CreatedOn,
		&p.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create 写入项目及成员（创建者总是成员）
func (r *ProjectRepository) Create(ctx context.Context, p *model.Project, memberIDs []int) error {
	r.logger.Debug("Inserting project",
		zap.String("name", p.Name),
		zap.Int("created_by", p.CreatedBy),
		zap.Ints("member_ids", memberIDs),
	)

	members := dedupIDs(append([]int{p.CreatedBy}, memberIDs...)...)
	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO projects (name, description, start_date, due_date, end_date, status, parent_id, created_by)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
			RETURNING id, created_on, updated_on
		`,
			p.Name, p.Description, p.StartDate, p.DueDate, p.EndDate, p.Status, p.ParentID, p.CreatedBy,
		).Scan(&p.ID, &p.CreatedOn, &p.UpdatedOn)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO project_users (project_id, user_id)
			SELECT $1, u.user_id FROM unnest($2::int[]) AS u(user_id)
			ON CONFLICT DO NOTHING
		`, p.ID, members)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return apperr.FromStore(err, "project", 0)
	}

	r.logger.Info("Project inserted successfully", zap.Int("id", p.ID), zap.Int("members", len(members)))
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id))
	if err != nil {
		return nil, apperr.FromStore(err, "project", id)
	}
	return p, nil
}

// SetStatus 仅当当前状态仍为 from 时更新
func (r *ProjectRepository) SetStatus(ctx context.Context, id int, from, to model.ProjectStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE projects
		SET status = $3,
		    end_date = CASE WHEN $3 IN ('completed', 'cancelled') THEN COALESCE(end_date, CURRENT_DATE) ELSE end_date END,
		    updated_on = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		r.logger.Error("Failed to set project status", zap.Int("id", id), zap.Error(err))
		return apperr.FromStore(err, "project", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(fmt.Sprintf("project %d status changed concurrently", id))
	}

	r.logger.Info("Project status changed",
		zap.Int("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// List 未指定 status 时只返回 active 项目；已删除项目只有显式按 status 过滤才可见
func (r *ProjectRepository) List(ctx context.Context, clause filter.Clause) ([]model.Project, error) {
	where := []string{}
	if !clause.Has("status") {
		where = append(where, "p.status = 'active'")
	}
	if !clause.Empty() {
		where = append(where, clause.SQL)
	}

	query := `SELECT ` + projectColumns + ` FROM projects p`
	if len(where) > 0 {
		query += ` WHERE ` + joinAnd(where)
	}
	query += ` ORDER BY p.id`

	return r.queryProjects(ctx, query, clause.Args...)
}

func (r *ProjectRepository) ListSubprojects(ctx context.Context, parentID int) ([]model.Project, error) {
	return r.queryProjects(ctx, `
		SELECT `+projectColumns+` FROM projects p
		WHERE p.parent_id = $1 AND p.status <> 'deleted'
		ORDER BY p.id
	`, parentID)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, apperr.FromStore(err, "project", 0)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, apperr.FromStore(err, "project", 0)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "project", 0)
	}
	return projects, nil
}

// Members 返回项目成员 ID（升序）
func (r *ProjectRepository) Members(ctx context.Context, projectID int) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM project_users WHERE project_id = $1 ORDER BY user_id
	`, projectID)
	if err != nil {
		return nil, apperr.FromStore(err, "project member", projectID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, apperr.FromStore(err, "project member", projectID)
	}
	return ids, nil
}

// AddMember 重复添加返回 Conflict
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO project_users (project_id, user_id) VALUES ($1, $2)
	`, projectID, userID)
	if err != nil {
		r.logger.Warn("Failed to add project member",
			zap.Int("project_id", projectID),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return apperr.FromStore(err, "project member", userID)
	}
	r.logger.Info("Project member added", zap.Int("project_id", projectID), zap.Int("user_id", userID))
	return nil
}

// RemoveMember 成员不存在返回 NotFound
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID int) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM project_users WHERE project_id = $1 AND user_id = $2
	`, projectID, userID)
	if err != nil {
		return apperr.FromStore(err, "project member", userID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("project member", userID)
	}
	r.logger.Info("Project member removed", zap.Int("project_id", projectID), zap.Int("user_id", userID))
	return nil
}
