package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/pkg/apperr"
	"tasktracker/pkg/logger"
)

// UserIDKey AuthMiddleware 写入 gin context 的键
const UserIDKey = "user_id"

// callerID 未认证时返回 0，由服务层转换为 Unauthenticated
func callerID(c *gin.Context) int {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(int)
	return id
}

func parseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError 按错误分类输出状态码；5xx 不向客户端暴露内部信息
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	log = logger.WithTrace(c.Request.Context(), log)

	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	if e, ok := apperr.As(err); ok {
		body["error"] = e.Message
		switch e.Kind {
		case apperr.KindForbidden:
			body["permission"] = e.Permission
		case apperr.KindValidation:
			body["reason"] = e.Reason
			body["fields"] = e.Fields
		case apperr.KindInvalidTransition:
			body["from"] = e.From
			body["to"] = e.To
		}
	}

	log.Info("Request rejected", zap.Int("status", status), zap.Error(err))
	c.JSON(status, body)
}

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return false
	}
	return true
}
