package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/internal/model"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/db"
	"tasktracker/pkg/outbox"
	"tasktracker/pkg/trace"
)

type NotificationRepository struct {
	db     db.DBTX
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewNotificationRepository(conn db.DBTX, outboxRepo *outbox.Repository, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: conn, outbox: outboxRepo, logger: logger}
}

const notificationColumns = `
	n.id, n.user_id, n.actor_id, n.type, n.task_id, n.project_id,
	COALESCE(t.name, p.name), n.is_read, n.read_on, n.active, n.sent_on, n.created_on`

const notificationFrom = `
	FROM notifications n
	LEFT JOIN tasks t ON t.id = n.task_id
	LEFT JOIN projects p ON p.id = n.project_id`

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var (
		n         model.Notification
		taskID    *int
		projectID *int
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.ActorID,
		&n.Type,
		&taskID,
		&projectID,
		&n.SubjectName,
		&n.IsRead,
		&n.ReadOn,
		&n.Active,
		&n.SentOn,
		&n.CreatedOn,
	)
	if err != nil {
		return nil, err
	}
	switch {
	case taskID != nil:
		n.Subject = model.TaskSubject(*taskID)
	case projectID != nil:
		n.Subject = model.ProjectSubject(*projectID)
	}
	return &n, nil
}

func subjectColumns(s model.Subject) (taskID, projectID *int) {
	id := s.ID
	if s.Kind == model.SubjectTask {
		return &id, nil
	}
	return nil, &id
}

// Create 写入一条通知，并在同一事务中写入 notification.created outbox 事件
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	taskID, projectID := subjectColumns(n.Subject)

	err := db.WithinTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO notifications (user_id, actor_id, type, task_id, project_id, is_read, active)
			VALUES ($1, $2, $3, $4, $5, FALSE, TRUE)
			RETURNING id, created_on
		`, n.UserID, n.ActorID, n.Type, taskID, projectID).Scan(&n.ID, &n.CreatedOn)
		if err != nil {
			return err
		}

		payload := contractmq.NotificationCreatedPayload{
			NotificationID: n.ID,
			UserID:         n.UserID,
			ActorID:        n.ActorID,
			Type:           string(n.Type),
			SubjectKind:    string(n.Subject.Kind),
			SubjectID:      n.Subject.ID,
			TraceID:        trace.FromContext(ctx),
			CreatedAt:      n.CreatedOn,
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "notification", int64(n.ID),
			contractmq.RoutingKeyNotificationCreated, payload); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Int("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return apperr.FromStore(err, "notification", 0)
	}

	n.IsRead = false
	n.Active = true
	return nil
}

// Get 读取一条未软删除的通知
func (r *NotificationRepository) Get(ctx context.Context, id int) (*model.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx,
		`SELECT `+notificationColumns+notificationFrom+` WHERE n.id = $1 AND n.active`, id))
	if err != nil {
		return nil, apperr.FromStore(err, "notification", id)
	}
	return n, nil
}

// ListByUser 主体已被删除时 SubjectName 为空
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom + ` WHERE n.user_id = $1 AND n.active`
	if unreadOnly {
		query += ` AND NOT n.is_read`
	}
	query += ` ORDER BY n.created_on DESC, n.id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperr.FromStore(err, "notification", 0)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, apperr.FromStore(err, "notification", 0)
		}
		list = append(list, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromStore(err, "notification", 0)
	}
	return list, nil
}

// MarkRead 只能标记自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_on = COALESCE(read_on, NOW())
		WHERE id = $1 AND user_id = $2 AND active
	`, id, userID)
	if err != nil {
		return apperr.FromStore(err, "notification", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

// MarkAllRead 返回被标记的条数
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_on = NOW()
		WHERE user_id = $1 AND active AND NOT is_read
	`, userID)
	if err != nil {
		return 0, apperr.FromStore(err, "notification", 0)
	}
	return tag.RowsAffected(), nil
}

// SoftDelete 置 active = false
func (r *NotificationRepository) SoftDelete(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET active = FALSE
		WHERE id = $1 AND user_id = $2 AND active
	`, id, userID)
	if err != nil {
		return apperr.FromStore(err, "notification", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

// MarkSent 记录投递时间，重复调用不覆盖第一次的时间
func (r *NotificationRepository) MarkSent(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET sent_on = COALESCE(sent_on, NOW()) WHERE id = $1
	`, id)
	if err != nil {
		return apperr.FromStore(err, "notification", id)
	}
	return nil
}

// PurgeRead 软删除 before 之前已读的通知
func (r *NotificationRepository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET active = FALSE
		WHERE active AND is_read AND read_on < $1
	`, before)
	if err != nil {
		r.logger.Error("Failed to purge read notifications", zap.Error(err))
		return 0, apperr.FromStore(err, "notification", 0)
	}
	return tag.RowsAffected(), nil
}
