package tag

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/rbac"
)

const (
	defaultColor = "#607d8b"
	defaultIcon  = "Label"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Store interface {
	List(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, t *model.Tag) error
}

type CreateInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Service 标签目录。创建需要 "Edit tasks"，列表只要求已登录。
type Service struct {
	gate   rbac.Authorizer
	tags   Store
	logger *zap.Logger
}

func NewService(gate rbac.Authorizer, tags Store, logger *zap.Logger) *Service {
	return &Service{gate: gate, tags: tags, logger: logger}
}

func (s *Service) ListTags(ctx context.Context, callerID int) ([]model.Tag, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	return s.tags.List(ctx)
}

// CreateTag 颜色缺省为灰蓝，给出时必须是 #RRGGBB
func (s *Service) CreateTag(ctx context.Context, callerID int, in CreateInput) (*model.Tag, error) {
	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return nil, err
	}

	t := &model.Tag{
		Name:      strings.TrimSpace(in.Name),
		Color:     in.Color,
		Icon:      in.Icon,
		CreatedBy: callerID,
	}
	if t.Name == "" {
		return nil, apperr.MissingFields("name")
	}
	if t.Color == "" {
		t.Color = defaultColor
	}
	if !hexColor.MatchString(t.Color) {
		return nil, apperr.InvalidValue("color", "must look like #RRGGBB")
	}
	if t.Icon == "" {
		t.Icon = defaultIcon
	}

	if err := s.tags.Create(ctx, t); err != nil {
		return nil, err
	}
	metrics.IncrementMutation("tag", "create")
	return t, nil
}
