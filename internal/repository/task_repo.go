package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
)

// TaskScope 列表查询的状态范围，已删除的任务永远不在列表中
type TaskScope int

const (
	ScopeAll TaskScope = iota
	ScopeActive
	ScopeInactive
)

// TaskFilters 任务列表允许的查询参数
var TaskFilters = filter.Whitelist{
	"id":                 {Column: "t.id", Op: filter.OpEq, Kind: filter.KindInt},
	"project_id":         {Column: "t.project_id", Op: filter.OpEq, Kind: filter.KindInt},
	"assignee_id":        {Column: "t.assignee_id", Op: filter.OpEq, Kind: filter.KindInt},
	"holder_id":          {Column: "t.holder_id", Op: filter.OpEq, Kind: filter.KindInt},
	"status":             {Column: "t.status", Op: filter.OpEq, Kind: filter.KindTaskStatus},
	"priority_id":        {Column: "t.priority_id", Op: filter.OpEq, Kind: filter.KindInt},
	"type_id":            {Column: "t.type_id", Op: filter.OpEq, Kind: filter.KindInt},
	"parent_id":          {Column: "t.parent_id", Op: filter.OpEq, Kind: filter.KindInt},
	"created_by":         {Column: "t.created_by", Op: filter.OpEq, Kind: filter.KindInt},
	"due_date_from":      {Column: "t.due_date", Op: filter.OpGte, Kind: filter.KindDate},
	"due_date_to":        {Column: "t.due_date", Op: filter.OpLte, Kind: filter.KindDate},
	"start_date_from":    {Column: "t.start_date", Op: filter.OpGte, Kind: filter.KindDate},
	"start_date_to":      {Column: "t.start_date", Op: filter.OpLte, Kind: filter.KindDate},
	"created_from":       {Column: "t.created_on::date", Op: filter.OpGte, Kind: filter.KindDate},
	"created_to":         {Column: "t.created_on::date", Op: filter.OpLte, Kind: filter.KindDate},
	"estimated_time_min": {Column: "t.estimated_time", Op: filter.OpGte, Kind: filter.KindFloat},
	"estimated_time_max": {Column: "t.estimated_time", Op: filter.OpLte, Kind: filter.KindFloat},
}

const taskColumns = `
	t.id, t.name, COALESCE(t.description, ''), t.estimated_time, t.spent_time, t.progress,
	t.start_date, t.due_date, t.end_date, t.status, t.priority_id, t.type_id,
	t.parent_id, t.project_id, t.holder_id, t.assignee_id, t.created_by,
	COALESCE((SELECT array_agg(tt.tag_id ORDER BY tt.tag_id) FROM task_tags tt WHERE tt.task_id = t.id), '{}'),
	t.created_on, t.updated_on`

type TaskRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewTaskRepository(conn db.DBTX, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: conn, logger: logger}
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.EstimatedTime,
		&t.SpentTime,
		&t.Progress,
		&t.StartDate,
		&t.DueDate,
		&t.EndDate,
		&t.Status,
		&t.PriorityID,
		&t.TypeID,
		&t.ParentID,
		&t.ProjectID,
		&t.HolderID,
		&t.AssigneeID,
		&t.CreatedBy,
		&t.TagIDs,
		&t.CreatedOn,
		&t.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create 在同一事务中写入任务和标签关联
func (r *TaskRepository) Create(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.String("name", t.Name),
		zap.Int("project_id", t.ProjectID),
		zap.Int("created_by", t.CreatedBy),
	)

	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tasks (name, description, estimated_time, progress, start_date, due_date, end_date,
			                   status, priority_id, type_id, parent_id, project_id, holder_id, assignee_id, created_by)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id, created_on, updated_on
		`,
			t.Name, t.Description, t.EstimatedTime, t.Progress, t.StartDate, t.DueDate, t.EndDate,
			t.Status, t.PriorityID, t.TypeID, t.ParentID, t.ProjectID, t.HolderID, t.AssigneeID, t.CreatedBy,
		).Scan(&t.ID, &t.CreatedOn, &t.UpdatedOn)
		if err != nil {
			return err
		}

		if len(t.TagIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO task_tags (task_id, tag_id)
				SELECT $1, u.tag_id FROM unnest($2::int[]) AS u(tag_id)
				ON CONFLICT DO NOTHING
			`, t.ID, t.TagIDs); err != nil {
				return fmt.Errorf("link tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return apperr.FromStore(err, "task", 0)
	}

	r.logger.Info("Task inserted successfully",
		zap.Int("id", t.ID),
		zap.Int("project_id", t.ProjectID),
	)
	return nil
}

// Get 按 ID 读取任务（包括已删除的，由调用方判断）
func (r *TaskRepository) Get(ctx context.Context, id int) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id))
	if err != nil {
		return nil, apperr.FromStore(err, "task", id)
	}
	return t, nil
}

// Update 全字段写回。仅当当前状态仍为 from 时生效，否则返回 Conflict，
// 避免覆盖并发的状态变更（包括删除）。
func (r *TaskRepository) Update(ctx context.Context, t *model.Task, from model.TaskStatus) error {
	r.logger.Debug("Updating task", zap.Int("id", t.ID))

	err := r.db.QueryRow(ctx, `
		UPDATE tasks
		SET name = $2, description = NULLIF($3, ''), estimated_time = $4, progress = $5,
		    start_date = $6, due_date = $7, end_date = $8, status = $9, priority_id = $10,
		    type_id = $11, project_id = $12, holder_id = $13, assignee_id = $14,
		    updated_on = NOW()
		WHERE id = $1 AND status = $15
		RETURNING updated_on
	`,
		t.ID, t.Name, t.Description, t.EstimatedTime, t.Progress,
		t.StartDate, t.DueDate, t.EndDate, t.Status, t.PriorityID,
		t.TypeID, t.ProjectID, t.HolderID, t.AssigneeID, from,
	).Scan(&t.UpdatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Warn("Task changed concurrently, update skipped",
			zap.Int("id", t.ID),
			zap.String("expected_status", string(from)),
		)
		return apperr.Conflict(fmt.Sprintf("task %d status changed concurrently", t.ID))
	}
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int("id", t.ID), zap.Error(err))
		return apperr.FromStore(err, "task", t.ID)
	}

	r.logger.Info("Task updated", zap.Int("id", t.ID))
	return nil
}

// SetStatus 仅当当前状态仍为 from 时更新，否则返回 Conflict
func (r *TaskRepository) SetStatus(ctx context.Context, id int, from, to model.TaskStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_on = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		r.logger.Error("Failed to set task status", zap.Int("id", id), zap.Error(err))
		return apperr.FromStore(err, "task", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(fmt.Sprintf("task %d status changed concurrently", id))
	}

	r.logger.Info("Task status changed",
		zap.Int("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

// List 列出未删除的任务
func (r *TaskRepository) List(ctx context.Context, clause filter.Clause, scope TaskScope) ([]model.Task, error) {
	where := []string{"t.status <> 'deleted'"}
	switch scope {
	case ScopeActive:
		where = append(where, "t.status IN ('todo', 'in_progress', 'on_hold', 'review')")
	case ScopeInactive:
		where = append(where, "t.status IN ('done', 'cancelled')")
	}
	if !clause.Empty() {
		where = append(where, clause.SQL)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE ` + joinAnd(where) + ` ORDER BY t.due_date, t.id`
	return r.queryTasks(ctx, query, clause.Args...)
}

// ListSubtasks 列出直接子任务
func (r *TaskRepository) ListSubtasks(ctx context.Context, parentID int) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.parent_id = $1 AND t.status <> 'deleted'
		ORDER BY t.id
	`, parentID)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, apperr.FromStore(err, "task", 0)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task", zap.Error(err))
			return nil, apperr.FromStore(err, "task", 0)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "task", 0)
	}

	r.logger.Debug("Listed tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}
