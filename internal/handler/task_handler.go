package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/internal/service/task"
)

// TaskService 由 task.Service 实现
type TaskService interface {
	CreateTask(ctx context.Context, callerID int, in task.CreateInput) (*model.Task, error)
	UpdateTask(ctx context.Context, callerID, id int, patch task.Patch) (*model.Task, error)
	ChangeTaskStatus(ctx context.Context, callerID, id int, status model.TaskStatus) (*model.Task, error)
	DeleteTask(ctx context.Context, callerID, id int) error
	GetTask(ctx context.Context, callerID, id int) (*model.Task, error)
	ListTasks(ctx context.Context, callerID int, params map[string]string) ([]model.Task, error)
	ListSubtasks(ctx context.Context, callerID, id int) ([]model.Task, error)
	AddComment(ctx context.Context, callerID, taskID int, text string) (*model.Comment, error)
	ListComments(ctx context.Context, callerID, taskID int) ([]model.Comment, error)
	ListWatchers(ctx context.Context, callerID, taskID int) ([]int, error)
	AddWatcher(ctx context.Context, callerID, taskID, userID int) error
	RemoveWatcher(ctx context.Context, callerID, taskID, userID int) error
}

type TaskHandler struct {
	tasks  TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

type statusRequest struct {
	Status string `json:"status"`
}

type userRequest struct {
	UserID int `json:"user_id"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// ListTasks GET /tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context(), callerID(c), filter.FromQuery(c.Request.URL.Query()))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTask GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.GetTask(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CreateTask POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var in task.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.tasks.CreateTask(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// UpdateTask PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch task.Patch
	if !bindJSON(c, &patch) {
		return
	}
	t, err := h.tasks.UpdateTask(c.Request.Context(), callerID(c), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ChangeStatus PATCH /tasks/:id/status
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tasks.ChangeTaskStatus(c.Request.Context(), callerID(c), id, model.TaskStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTask DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubtasks GET /tasks/:id/subtasks
func (h *TaskHandler) ListSubtasks(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := h.tasks.ListSubtasks(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// ListComments GET /tasks/:id/comments
func (h *TaskHandler) ListComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	comments, err := h.tasks.ListComments(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// AddComment POST /tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.tasks.AddComment(c.Request.Context(), callerID(c), id, req.Comment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListWatchers GET /tasks/:id/watchers
func (h *TaskHandler) ListWatchers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ids, err := h.tasks.ListWatchers(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": id, "user_ids": ids})
}

// AddWatcher POST /tasks/:id/watchers
func (h *TaskHandler) AddWatcher(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req userRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.tasks.AddWatcher(c.Request.Context(), callerID(c), id, req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveWatcher DELETE /tasks/:id/watchers/:userId
func (h *TaskHandler) RemoveWatcher(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if err := h.tasks.RemoveWatcher(c.Request.Context(), callerID(c), id, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
