package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/circuitbreaker"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
)

// Message 渲染后的通知内容
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer 外部投递通道
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type UserLookup interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

// NotificationStore Get 不返回已软删除的通知
type NotificationStore interface {
	Get(ctx context.Context, id int) (*model.Notification, error)
	MarkSent(ctx context.Context, id int) error
}

var subjects = map[model.NotificationType]string{
	model.TaskCreated:          "New task #%d",
	model.TaskUpdated:          "Task #%d updated",
	model.TaskComment:          "New comment on task #%d",
	model.ProjectCreated:       "New project #%d",
	model.ProjectUpdated:       "Project #%d updated",
	model.ProjectMemberAdded:   "Member added to project #%d",
	model.ProjectMemberRemoved: "Member removed from project #%d",
}

// Render 按通知类型生成标题和正文
func Render(to string, p contractmq.NotificationCreatedPayload) (Message, error) {
	format, ok := subjects[model.NotificationType(p.Type)]
	if !ok {
		return Message{}, apperr.InvalidValue("type", p.Type)
	}
	subject := fmt.Sprintf(format, p.SubjectID)
	body := fmt.Sprintf("%s by user #%d at %s.", subject, p.ActorID, p.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	return Message{To: to, Subject: subject, Body: body}, nil
}

// Sender 把 notification.created 事件投递给收件人，Mailer 调用受熔断器保护
type Sender struct {
	users   UserLookup
	notes   NotificationStore
	mailer  Mailer
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewSender(users UserLookup, notes NotificationStore, mailer Mailer, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Sender {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}
	return &Sender{
		users:   users,
		notes:   notes,
		mailer:  mailer,
		breaker: breaker,
		logger:  logger,
	}
}

// Deliver 通知已删除或已发送、收件人不存在、非 active 或没有邮箱时跳过，不视为错误
func (s *Sender) Deliver(ctx context.Context, p contractmq.NotificationCreatedPayload) error {
	log := logger.WithTrace(ctx, s.logger).With(
		zap.Int("notification_id", p.NotificationID),
		zap.Int("user_id", p.UserID),
		zap.String("type", p.Type),
	)

	n, err := s.notes.Get(ctx, p.NotificationID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Info("Notification deleted before delivery, skipping")
			metrics.RecordDelivery(p.Type, "skipped")
			return nil
		}
		return err
	}
	if n.SentOn != nil {
		log.Info("Notification already delivered, skipping", zap.Time("sent_on", *n.SentOn))
		metrics.RecordDelivery(p.Type, "duplicate")
		return nil
	}

	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Warn("Recipient not found, skipping delivery")
			metrics.RecordDelivery(p.Type, "skipped")
			return nil
		}
		return err
	}
	if u.Status != model.UserActive || u.Email == "" {
		log.Info("Recipient cannot receive mail, skipping delivery", zap.String("status", string(u.Status)))
		metrics.RecordDelivery(p.Type, "skipped")
		return nil
	}

	msg, err := Render(u.Email, p)
	if err != nil {
		metrics.RecordDelivery(p.Type, "invalid")
		return err
	}

	if err := s.breaker.Execute(func() error { return s.mailer.Send(ctx, msg) }); err != nil {
		log.Warn("Failed to send notification", zap.String("breaker", s.breaker.GetState().String()), zap.Error(err))
		metrics.RecordDelivery(p.Type, "error")
		return err
	}

	if err := s.notes.MarkSent(ctx, p.NotificationID); err != nil {
		log.Error("Failed to mark notification as sent", zap.Error(err))
		return err
	}

	metrics.RecordDelivery(p.Type, "sent")
	log.Info("Notification sent successfully")
	return nil
}

// LogMailer 只写日志，用于本地环境
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Sending email notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
