package httpserver

import (
	"github.com/gin-gonic/gin"

	"tasktracker/internal/handler"
	"tasktracker/pkg/apperr"
	"tasktracker/pkg/rbac"
)

// RequirePermission 中间件：要求用户具有指定权限。
// 未登录 401，无权限 403，权限存储不可用 500。
func RequirePermission(gate rbac.Authorizer, permission rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := c.Get(handler.UserIDKey)
		userID, _ := uid.(int)

		if err := gate.Authorize(c.Request.Context(), userID, permission); err != nil {
			status := apperr.HTTPStatus(err)
			body := gin.H{"error": "internal server error"}
			if e, ok := apperr.As(err); ok && status < 500 {
				body["error"] = e.Message
				if e.Permission != "" {
					body["permission"] = e.Permission
				}
			}
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Next()
	}
}
