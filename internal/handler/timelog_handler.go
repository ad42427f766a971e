package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/internal/service/timelog"
)

// TimeLogService 由 timelog.Service 实现
type TimeLogService interface {
	LogTime(ctx context.Context, callerID, taskID int, in timelog.Input) (*model.TimeLog, error)
	ListTimeLogs(ctx context.Context, callerID, taskID int) ([]model.TimeLog, error)
	UpdateTimeLog(ctx context.Context, callerID, id int, in timelog.Input) (*model.TimeLog, error)
	DeleteTimeLog(ctx context.Context, callerID, id int) error
}

type TimeLogHandler struct {
	logs   TimeLogService
	logger *zap.Logger
}

func NewTimeLogHandler(logs TimeLogService, logger *zap.Logger) *TimeLogHandler {
	return &TimeLogHandler{logs: logs, logger: logger}
}

// List GET /tasks/:id/time-logs
func (h *TimeLogHandler) List(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	logs, err := h.logs.ListTimeLogs(c.Request.Context(), callerID(c), taskID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// Create POST /tasks/:id/time-logs
func (h *TimeLogHandler) Create(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in timelog.Input
	if !bindJSON(c, &in) {
		return
	}
	l, err := h.logs.LogTime(c.Request.Context(), callerID(c), taskID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// Update PUT /time-logs/:id
func (h *TimeLogHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in timelog.Input
	if !bindJSON(c, &in) {
		return
	}
	l, err := h.logs.UpdateTimeLog(c.Request.Context(), callerID(c), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// Delete DELETE /time-logs/:id
func (h *TimeLogHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.logs.DeleteTimeLog(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
