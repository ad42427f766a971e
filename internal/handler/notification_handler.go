package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/model"
)

// InboxService 由 notification.Inbox 实现
type InboxService interface {
	List(ctx context.Context, callerID int, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, callerID, id int) error
	MarkAllRead(ctx context.Context, callerID int) (int64, error)
	Delete(ctx context.Context, callerID, id int) error
}

type NotificationHandler struct {
	inbox  InboxService
	logger *zap.Logger
}

func NewNotificationHandler(inbox InboxService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{inbox: inbox, logger: logger}
}

// List GET /notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.inbox.List(c.Request.Context(), callerID(c), c.Query("unread") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.inbox.MarkAllRead(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Delete DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.inbox.Delete(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
