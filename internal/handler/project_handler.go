package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/filter"
	"tasktracker/internal/model"
	"tasktracker/internal/service/project"
)

// ProjectService 由 project.Service 实现
type ProjectService interface {
	CreateProject(ctx context.Context, callerID int, in project.CreateInput) (*model.Project, error)
	UpdateProjectStatus(ctx context.Context, callerID, id int, status model.ProjectStatus) (*model.Project, error)
	DeleteProject(ctx context.Context, callerID, id int) error
	AddProjectMember(ctx context.Context, callerID, projectID, userID int) error
	RemoveProjectMember(ctx context.Context, callerID, projectID, userID int) error
	GetProject(ctx context.Context, callerID, id int) (*model.Project, error)
	ListProjects(ctx context.Context, callerID int, params map[string]string) ([]model.Project, error)
	ListMembers(ctx context.Context, callerID, id int) ([]int, error)
	ListSubprojects(ctx context.Context, callerID, id int) ([]model.Project, error)
}

type ProjectHandler struct {
	projects ProjectService
	logger   *zap.Logger
}

func NewProjectHandler(projects ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// ListProjects GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	list, err := h.projects.ListProjects(c.Request.Context(), callerID(c), filter.FromQuery(c.Request.URL.Query()))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProject GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.projects.GetProject(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProject POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in project.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.projects.CreateProject(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ChangeStatus PATCH /projects/:id/status
func (h *ProjectHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projects.UpdateProjectStatus(c.Request.Context(), callerID(c), id, model.ProjectStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProject DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMembers GET /projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ids, err := h.projects.ListMembers(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": id, "user_ids": ids})
}

// AddMember POST /projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req userRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.projects.AddProjectMember(c.Request.Context(), callerID(c), id, req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember DELETE /projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if err := h.projects.RemoveProjectMember(c.Request.Context(), callerID(c), id, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubprojects GET /projects/:id/subprojects
func (h *ProjectHandler) ListSubprojects(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.projects.ListSubprojects(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
