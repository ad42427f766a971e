package timelog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/rbac"
)

// maxHoursPerEntry 单条记录的工时上限
const maxHoursPerEntry = 24

type Store interface {
	Create(ctx context.Context, l *model.TimeLog) error
	Get(ctx context.Context, id int) (*model.TimeLog, error)
	Update(ctx context.Context, l *model.TimeLog) error
	Delete(ctx context.Context, id int) (int, error)
	ListByTask(ctx context.Context, taskID int) ([]model.TimeLog, error)
}

type TaskLookup interface {
	Get(ctx context.Context, id int) (*model.Task, error)
}

// Input 记录或修改工时的请求体，log_date 缺省为当天
type Input struct {
	LogDate        *time.Time `json:"log_date"`
	SpentTime      *float64   `json:"spent_time"`
	Description    string     `json:"description"`
	ActivityTypeID int        `json:"activity_type_id"`
}

func (in Input) validate() error {
	var missing []string
	if in.SpentTime == nil {
		missing = append(missing, "spent_time")
	}
	if in.ActivityTypeID <= 0 {
		missing = append(missing, "activity_type_id")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	if *in.SpentTime <= 0 || *in.SpentTime > maxHoursPerEntry {
		return apperr.InvalidValue("spent_time", "must be greater than 0 and at most 24 hours")
	}
	return nil
}

// Service 工时记录。写操作需要 "Edit tasks"，读取只要求已登录。
type Service struct {
	gate   rbac.Authorizer
	logs   Store
	tasks  TaskLookup
	logger *zap.Logger
	now    func() time.Time
}

func NewService(gate rbac.Authorizer, logs Store, tasks TaskLookup, logger *zap.Logger) *Service {
	return &Service{gate: gate, logs: logs, tasks: tasks, logger: logger, now: time.Now}
}

// LogTime 以调用者身份给任务记一条工时，已删除的任务视为不存在
func (s *Service) LogTime(ctx context.Context, callerID, taskID int, in Input) (*model.TimeLog, error) {
	ctx, span := otel.StartSpan(ctx, "timelog.create")
	defer span.End()
	span.SetAttributes(attribute.Int("task.id", taskID))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkTask(ctx, taskID); err != nil {
		return nil, err
	}

	l := &model.TimeLog{
		TaskID:         taskID,
		UserID:         callerID,
		LogDate:        s.logDate(in.LogDate),
		SpentTime:      *in.SpentTime,
		Description:    in.Description,
		ActivityTypeID: in.ActivityTypeID,
	}
	if err := s.logs.Create(ctx, l); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	metrics.IncrementMutation("time_log", "create")
	return l, nil
}

func (s *Service) ListTimeLogs(ctx context.Context, callerID, taskID int) ([]model.TimeLog, error) {
	if callerID <= 0 {
		return nil, apperr.Unauthenticated()
	}
	if err := s.checkTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.logs.ListByTask(ctx, taskID)
}

// UpdateTimeLog 整体替换日期、工时、描述和活动类型
func (s *Service) UpdateTimeLog(ctx context.Context, callerID, id int, in Input) (*model.TimeLog, error) {
	ctx, span := otel.StartSpan(ctx, "timelog.update")
	defer span.End()
	span.SetAttributes(attribute.Int("time_log.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	l, err := s.logs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTask(ctx, l.TaskID); err != nil {
		return nil, err
	}

	if in.LogDate != nil {
		l.LogDate = *in.LogDate
	}
	l.SpentTime = *in.SpentTime
	l.Description = in.Description
	l.ActivityTypeID = in.ActivityTypeID
	if err := s.logs.Update(ctx, l); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	metrics.IncrementMutation("time_log", "update")
	return l, nil
}

func (s *Service) DeleteTimeLog(ctx context.Context, callerID, id int) error {
	ctx, span := otel.StartSpan(ctx, "timelog.delete")
	defer span.End()
	span.SetAttributes(attribute.Int("time_log.id", id))

	if err := s.gate.Authorize(ctx, callerID, rbac.EditTasks); err != nil {
		return err
	}
	taskID, err := s.logs.Delete(ctx, id)
	if err != nil {
		otel.RecordError(span, err)
		return err
	}
	metrics.IncrementMutation("time_log", "delete")

	s.logger.Info("Time log deleted", zap.Int("id", id), zap.Int("task_id", taskID), zap.Int("by", callerID))
	return nil
}

func (s *Service) checkTask(ctx context.Context, taskID int) error {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status == model.TaskDeleted {
		return apperr.NotFound("task", taskID)
	}
	return nil
}

func (s *Service) logDate(d *time.Time) time.Time {
	if d != nil {
		return *d
	}
	y, m, day := s.now().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
