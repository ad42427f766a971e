package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tasktracker/internal/handler"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/rbac"
)

// Pinger readyz 使用，*pgxpool.Pool 实现
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth          *handler.AuthHandler
	Tasks         *handler.TaskHandler
	Projects      *handler.ProjectHandler
	TimeLogs      *handler.TimeLogHandler
	Tags          *handler.TagHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, gate rbac.Authorizer, jwtSecret string, db Pinger, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogMiddleware(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/tasks", h.Tasks.ListTasks)
		auth.POST("/tasks", h.Tasks.CreateTask)
		auth.GET("/tasks/:id", h.Tasks.GetTask)
		auth.PUT("/tasks/:id", h.Tasks.UpdateTask)
		auth.PATCH("/tasks/:id/status", h.Tasks.ChangeStatus)
		auth.DELETE("/tasks/:id", h.Tasks.DeleteTask)
		auth.GET("/tasks/:id/subtasks", h.Tasks.ListSubtasks)
		auth.GET("/tasks/:id/watchers", h.Tasks.ListWatchers)
		auth.POST("/tasks/:id/watchers", h.Tasks.AddWatcher)
		auth.DELETE("/tasks/:id/watchers/:userId", h.Tasks.RemoveWatcher)
		auth.GET("/tasks/:id/comments", h.Tasks.ListComments)
		auth.POST("/tasks/:id/comments", h.Tasks.AddComment)
		auth.GET("/tasks/:id/time-logs", h.TimeLogs.List)
		auth.POST("/tasks/:id/time-logs", h.TimeLogs.Create)
		auth.PUT("/time-logs/:id", h.TimeLogs.Update)
		auth.DELETE("/time-logs/:id", h.TimeLogs.Delete)

		auth.GET("/tags", h.Tags.List)
		auth.POST("/tags", h.Tags.Create)

		auth.GET("/projects", h.Projects.ListProjects)
		auth.POST("/projects", h.Projects.CreateProject)
		auth.GET("/projects/:id", h.Projects.GetProject)
		auth.PATCH("/projects/:id/status", h.Projects.ChangeStatus)
		auth.DELETE("/projects/:id", h.Projects.DeleteProject)
		auth.GET("/projects/:id/members", h.Projects.ListMembers)
		auth.POST("/projects/:id/members", h.Projects.AddMember)
		auth.DELETE("/projects/:id/members/:userId", h.Projects.RemoveMember)
		auth.GET("/projects/:id/subprojects", h.Projects.ListSubprojects)

		auth.GET("/notifications", h.Notifications.List)
		auth.PATCH("/notifications/read-all", h.Notifications.MarkAllRead)
		auth.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
		auth.DELETE("/notifications/:id", h.Notifications.Delete)

		admin := auth.Group("/admin")
		admin.Use(RequirePermission(gate, rbac.ManageUsers))
		{
			admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	return &Router{Engine: r}
}

// Server 返回带超时配置的 http.Server，由调用方负责优雅关闭
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
