package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/internal/service/tag"
)

// TagService 由 tag.Service 实现
type TagService interface {
	ListTags(ctx context.Context, callerID int) ([]model.Tag, error)
	CreateTag(ctx context.Context, callerID int, in tag.CreateInput) (*model.Tag, error)
}

type TagHandler struct {
	tags   TagService
	logger *zap.Logger
}

func NewTagHandler(tags TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// List GET /tags
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.ListTags(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// Create POST /tags
func (h *TagHandler) Create(c *gin.Context) {
	var in tag.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.tags.CreateTag(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
