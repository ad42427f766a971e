package task

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service/watcher"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/rbac"
)

type Store interface {
	Create(ctx context.Context, t *model.Task) error
	Get(ctx context.Context, id int) (*model.Task, error)
	Update(ctx context.Context, t *model.Task, from model.TaskStatus) error
	SetStatus(ctx context.Context, id int, from, to model.TaskStatus) error
	List(ctx context.Context, clause filter.Clause, scope repository.TaskScope) ([]model.Task, error)
	ListSubtasks(ctx context.Context, parentID int) ([]model.Task, error)
}

type ProjectLookup interface {
	Get(ctx context.Context, id int) (*model.Project, error)
}

type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	ListByTask(ctx context.Context, taskID int) ([]model.Comment, error)
}

type Watchers interface {
	EffectiveWatchers(ctx context.Context, t *model.Task) ([]int, error)
	Explicit(ctx context.Context, taskID int) ([]int, error)
	Add(ctx context.Context, taskID, userID int) error
	Remove(ctx context.Context, taskID, userID int) error
}

// Notifier 由 notification.Fanout 实现
type Notifier interface {
	Notify(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType) ([]model.Notification, error)
	NotifyUsers(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType, audience []int) ([]model.Notification, error)
}

// Service 任务生命周期：鉴权、校验、写入，然后通知关注者
type Service struct {
	gate     rbac.Authorizer
	tasks    Store
	projects ProjectLookup
	comments CommentStore
	watchers Watchers
	notifier Notifier
	logger   *zap.Logger
}

func NewService(
	gate rbac.Authorizer,
	tasks Store,
	projects ProjectLookup,
	comments CommentStore,
	watchers Watchers,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		gate:     gate,
		tasks:    tasks,
		projects: projects,
		comments: comments,
		watchers: watchers,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateTask 需要 "Create tasks"。初始受众只有 holder、assignee、creator。
func (s *Service) CreateTask(ctx context.Context, callerID int, in CreateInput) (*model.Task, error) {
	ctx, span := otel.StartSpan(ctx, "task.create")
	defer span.End()

	if err := s.gate.Authorize(ctx, callerID, rbac.CreateTasks); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, *in.ParentID, in.ProjectID); err != nil {
			return nil, err
		}
	}

	t := in.toTask(callerID)
	if err := s.tasks.Create(ctx, t); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("task.id", t.ID))
	metrics.IncrementMutation("task", "create")

	s.fanout(ctx, model.TaskSubject(t.ID), callerID, model.TaskCreated, watcher.ImplicitWatchers(t))
	return t, nil
}

// UpdateTask 需要 "Edit tasks"。只修改 patch 中出现的字段，日期按合并后的结果校验。
// 终态任务不可编辑；patch 不能把任务改成 deleted，删除只能走 DeleteTask。
func (s *Service) UpdateTask(ctx context.Context, callerID, id int, patch Patch) (*model.Task, error) {
	ctx, span := otel.StartSpan(ctx, "task.update")
	defer span.End()
	span.SetAttributes(attribute.Int("task.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return nil, err
	}

	t, err := s.activeTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, apperr.InvalidTransition(string(t.Status), string(t.Status))
	}
	if patch.Status != nil && *patch.Status == model.TaskDeleted {
		return nil, apperr.InvalidValue("status", "use DELETE /tasks/:id to remove a task")
	}

	from := t.Status
	if patch.Status != nil && *patch.Status != t.Status {
		if !t.Status.CanTransitionTo(*patch.Status) {
			return nil, apperr.InvalidTransition(string(t.Status), string(*patch.Status))
		}
		t.Status = *patch.Status
	}

	oldProject := t.ProjectID
	if err := patch.apply(t); err != nil {
		return nil, err
	}
	if t.ProjectID != oldProject {
		if err := s.checkProject(ctx, t.ProjectID); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Update(ctx, t, from); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	metrics.IncrementMutation("task", "update")

	s.notify(ctx, model.TaskSubject(t.ID), callerID, model.TaskUpdated)
	return t, nil
}

// ChangeTaskStatus 需要 "Edit tasks"。终态拒绝任何变更；相同的非终态返回原任务，不写入也不通知。
// 目标为 deleted 时拒绝，删除需要 "Delete tasks"。
func (s *Service) ChangeTaskStatus(ctx context.Context, callerID, id int, status model.TaskStatus) (*model.Task, error) {
	ctx, span := otel.StartSpan(ctx, "task.change_status")
	defer span.End()
	span.SetAttributes(attribute.Int("task.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.InvalidValue("status", string(status))
	}

	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status.IsTerminal() {
		return nil, apperr.InvalidTransition(string(t.Status), string(status))
	}
	if status == model.TaskDeleted {
		return nil, apperr.InvalidValue("status", "use DELETE /tasks/:id to remove a task")
	}
	if t.Status == status {
		return t, nil
	}
	if !t.Status.CanTransitionTo(status) {
		return nil, apperr.InvalidTransition(string(t.Status), string(status))
	}

	if err := s.tasks.SetStatus(ctx, id, t.Status, status); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	t.Status = status
	metrics.IncrementMutation("task", "change_status")

	s.notify(ctx, model.TaskSubject(t.ID), callerID, model.TaskUpdated)
	return t, nil
}

// DeleteTask 需要 "Delete tasks"。强制迁移到 deleted，不发通知。
func (s *Service) DeleteTask(ctx context.Context, callerID, id int) error {
	ctx, span := otel.StartSpan(ctx, "task.delete")
	defer span.End()
	span.SetAttributes(attribute.Int("task.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.DeleteTasks); err != nil {
		return err
	}

	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return apperr.InvalidTransition(string(t.Status), string(model.TaskDeleted))
	}

	if err := s.tasks.SetStatus(ctx, id, t.Status, model.TaskDeleted); err != nil {
		otel.RecordError(span, err)
		return err
	}
	metrics.IncrementMutation("task", "delete")

	logger.WithTrace(ctx, s.logger).Info("Task deleted", zap.Int("id", id), zap.Int("by", callerID))
	return nil
}

// GetTask 已删除的任务视为不存在
func (s *Service) GetTask(ctx context.Context, callerID, id int) (*model.Task, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	return s.activeTask(ctx, id)
}

// ListTasks 没有可识别的过滤条件时只返回进行中的任务；
// active_only / inactive_only 显式指定状态范围
func (s *Service) ListTasks(ctx context.Context, callerID int, params map[string]string) ([]model.Task, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}

	clause, err := filter.Build(params, repository.TaskFilters, 1)
	if err != nil {
		return nil, err
	}

	activeOnly, inactiveOnly := params["active_only"] == "true", params["inactive_only"] == "true"
	scope := repository.ScopeAll
	switch {
	case activeOnly && inactiveOnly:
		return nil, apperr.InvalidValue("active_only", "cannot be combined with inactive_only")
	case activeOnly:
		scope = repository.ScopeActive
	case inactiveOnly:
		scope = repository.ScopeInactive
	case clause.Empty():
		scope = repository.ScopeActive
	}

	return s.tasks.List(ctx, clause, scope)
}

func (s *Service) ListSubtasks(ctx context.Context, callerID, id int) ([]model.Task, error) {
	if _, err := s.GetTask(ctx, callerID, id); err != nil {
		return nil, err
	}
	return s.tasks.ListSubtasks(ctx, id)
}

// AddComment 任何登录用户都可评论，评论通知所有有效关注者
func (s *Service) AddComment(ctx context.Context, callerID, taskID int, text string) (*model.Comment, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	if text == "" {
		return nil, apperr.MissingFields("comment")
	}
	if _, err := s.activeTask(ctx, taskID); err != nil {
		return nil, err
	}

	c := &model.Comment{TaskID: taskID, UserID: callerID, Text: text}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	metrics.IncrementMutation("comment", "create")

	s.notify(ctx, model.TaskSubject(taskID), callerID, model.TaskComment)
	return c, nil
}

func (s *Service) ListComments(ctx context.Context, callerID, taskID int) ([]model.Comment, error) {
	if _, err := s.GetTask(ctx, callerID, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

// ListWatchers 返回有效关注者集合
func (s *Service) ListWatchers(ctx context.Context, callerID, taskID int) ([]int, error) {
	t, err := s.GetTask(ctx, callerID, taskID)
	if err != nil {
		return nil, err
	}
	return s.watchers.EffectiveWatchers(ctx, t)
}

// AddWatcher 需要 "Edit tasks"；隐式关注者不落表
func (s *Service) AddWatcher(ctx context.Context, callerID, taskID, userID int) error {
	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return err
	}
	if userID <= 0 {
		return apperr.InvalidValue("user_id", "must be a positive id")
	}
	t, err := s.activeTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, id := range watcher.ImplicitWatchers(t) {
		if id == userID {
			return nil
		}
	}
	return s.watchers.Add(ctx, taskID, userID)
}

// RemoveWatcher 需要 "Edit tasks"；只能移除显式关注行
func (s *Service) RemoveWatcher(ctx context.Context, callerID, taskID, userID int) error {
	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return err
	}
	if _, err := s.activeTask(ctx, taskID); err != nil {
		return err
	}
	return s.watchers.Remove(ctx, taskID, userID)
}

func (s *Service) activeTask(ctx context.Context, id int) (*model.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TaskDeleted {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

func (s *Service) checkProject(ctx context.Context, projectID int) error {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return apperr.InvalidValue("project_id", "project is "+string(p.Status))
	}
	return nil
}

func (s *Service) checkParent(ctx context.Context, parentID, projectID int) error {
	parent, err := s.activeTask(ctx, parentID)
	if err != nil {
		return err
	}
	if parent.ProjectID != projectID {
		return apperr.InvalidValue("parent_id", "parent task belongs to another project")
	}
	return nil
}

// notify 通知失败只记录，不影响已经成功的写入
func (s *Service) notify(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType) {
	if _, err := s.notifier.Notify(ctx, subject, actorID, typ); err != nil {
		s.logFanoutError(ctx, subject, typ, err)
	}
}

func (s *Service) fanout(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType, audience []int) {
	if _, err := s.notifier.NotifyUsers(ctx, subject, actorID, typ, audience); err != nil {
		s.logFanoutError(ctx, subject, typ, err)
	}
}

func (s *Service) logFanoutError(ctx context.Context, subject model.Subject, typ model.NotificationType, err error) {
	logger.WithTrace(ctx, s.logger).Warn("Notification fan-out failed after successful write",
		zap.String("type", string(typ)),
		zap.String("subject_kind", string(subject.Kind)),
		zap.Int("subject_id", subject.ID),
		zap.Error(err),
	)
}
