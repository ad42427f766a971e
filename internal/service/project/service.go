package project

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/rbac"
)

type Store interface {
	Create(ctx context.Context, p *model.Project, memberIDs []int) error
	Get(ctx context.Context, id int) (*model.Project, error)
	SetStatus(ctx context.Context, id int, from, to model.ProjectStatus) error
	List(ctx context.Context, clause filter.Clause) ([]model.Project, error)
	ListSubprojects(ctx context.Context, parentID int) ([]model.Project, error)
	Members(ctx context.Context, projectID int) ([]int, error)
	AddMember(ctx context.Context, projectID, userID int) error
	RemoveMember(ctx context.Context, projectID, userID int) error
}

type Notifier interface {
	Notify(ctx context.Context, subject model.Subject, actorID int, typ model.NotificationType) ([]model.Notification, error)
}

// CreateInput 创建项目的请求体
type CreateInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	ParentID    *int       `json:"parent_id"`
	MemberIDs   []int      `json:"member_ids"`
}

type Service struct {
	gate     rbac.Authorizer
	projects Store
	notifier Notifier
	logger   *zap.Logger
}

func NewService(gate rbac.Authorizer, projects Store, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{gate: gate, projects: projects, notifier: notifier, logger: logger}
}

// CreateProject 需要 "Create projects"。创建者自动成为成员。
func (s *Service) CreateProject(ctx context.Context, callerID int, in CreateInput) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.create")
	defer span.End()

	if err := s.gate.Authorize(ctx, callerID, rbac.CreateProjects); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.MissingFields("name")
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return nil, apperr.InvalidDateRange("start_date", "due_date")
	}
	for _, id := range in.MemberIDs {
		if id <= 0 {
			return nil, apperr.InvalidValue("member_ids", "must contain positive ids")
		}
	}
	if in.ParentID != nil {
		if _, err := s.activeProject(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}

	p := &model.Project{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Status:      model.ProjectActive,
		ParentID:    in.ParentID,
		CreatedBy:   callerID,
	}
	if err := s.projects.Create(ctx, p, in.MemberIDs); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("project.id", p.ID))
	metrics.IncrementMutation("project", "create")

	s.notify(ctx, p.ID, callerID, model.ProjectCreated)
	return p, nil
}

// UpdateProjectStatus 需要 "Edit projects"。终态拒绝任何变更；相同的非终态为 no-op。
// 目标为 deleted 时拒绝，删除需要 "Delete projects"。
func (s *Service) UpdateProjectStatus(ctx context.Context, callerID, id int, status model.ProjectStatus) (*model.Project, error) {
	ctx, span := otel.StartSpan(ctx, "project.change_status")
	defer span.End()
	span.SetAttributes(attribute.Int("project.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditProjects); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.InvalidValue("status", string(status))
	}

	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, apperr.InvalidTransition(string(p.Status), string(status))
	}
	if status == model.ProjectDeleted {
		return nil, apperr.InvalidValue("status", "use DELETE /projects/:id to remove a project")
	}
	if p.Status == status {
		return p, nil
	}
	if !p.Status.CanTransitionTo(status) {
		return nil, apperr.InvalidTransition(string(p.Status), string(status))
	}

	if err := s.projects.SetStatus(ctx, id, p.Status, status); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	p.Status = status
	metrics.IncrementMutation("project", "change_status")

	s.notify(ctx, id, callerID, model.ProjectUpdated)
	return p, nil
}

// DeleteProject 需要 "Delete projects"，不发通知
func (s *Service) DeleteProject(ctx context.Context, callerID, id int) error {
	ctx, span := otel.StartSpan(ctx, "project.delete")
	defer span.End()
	span.SetAttributes(attribute.Int("project.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.DeleteProjects); err != nil {
		return err
	}

	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return apperr.InvalidTransition(string(p.Status), string(model.ProjectDeleted))
	}
	if err := s.projects.SetStatus(ctx, id, p.Status, model.ProjectDeleted); err != nil {
		otel.RecordError(span, err)
		return err
	}
	metrics.IncrementMutation("project", "delete")

	logger.WithTrace(ctx, s.logger).Info("Project deleted", zap.Int("id", id), zap.Int("by", callerID))
	return nil
}

// AddProjectMember 需要 "Edit projects"。新成员也会收到通知。
func (s *Service) AddProjectMember(ctx context.Context, callerID, projectID, userID int) error {
	if err := s.gate.Authorize(ctx, callerID, rbac.EditProjects); err != nil {
		return err
	}
	if userID <= 0 {
		return apperr.InvalidValue("user_id", "must be a positive id")
	}
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}

	if err := s.projects.AddMember(ctx, projectID, userID); err != nil {
		return err
	}
	metrics.IncrementMutation("project_member", "add")

	s.notify(ctx, projectID, callerID, model.ProjectMemberAdded)
	return nil
}

// RemoveProjectMember 需要 "Edit projects"。通知剩余成员，被移除的用户不通知。
func (s *Service) RemoveProjectMember(ctx context.Context, callerID, projectID, userID int) error {
	if err := s.gate.Authorize(ctx, callerID, rbac.EditProjects); err != nil {
		return err
	}
	if _, err := s.activeProject(ctx, projectID); err != nil {
		return err
	}

	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	metrics.IncrementMutation("project_member", "remove")

	s.notify(ctx, projectID, callerID, model.ProjectMemberRemoved)
	return nil
}

func (s *Service) GetProject(ctx context.Context, callerID, id int) (*model.Project, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	return s.activeProject(ctx, id)
}

// ListProjects 调用方未指定 status 时只列出 active 项目（由 repository 处理）
func (s *Service) ListProjects(ctx context.Context, callerID int, params map[string]string) ([]model.Project, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	clause, err := filter.Build(params, repository.ProjectFilters, 1)
	if err != nil {
		return nil, err
	}
	return s.projects.List(ctx, clause)
}

func (s *Service) ListMembers(ctx context.Context, callerID, id int) ([]int, error) {
	if _, err := s.GetProject(ctx, callerID, id); err != nil {
		return nil, err
	}
	return s.projects.Members(ctx, id)
}

func (s *Service) ListSubprojects(ctx context.Context, callerID, id int) ([]model.Project, error) {
	if _, err := s.GetProject(ctx, callerID, id); err != nil {
		return nil, err
	}
	return s.projects.ListSubprojects(ctx, id)
}

func (s *Service) activeProject(ctx context.Context, id int) (*model.Project, error) {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.ProjectDeleted {
		return nil, apperr.NotFound("project", id)
	}
	return p, nil
}

func (s *Service) notify(ctx context.Context, projectID, actorID int, typ model.NotificationType) {
	if _, err := s.notifier.Notify(ctx, model.ProjectSubject(projectID), actorID, typ); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Notification fan-out failed after successful write",
			zap.String("type", string(typ)),
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
	}
}
