package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/config"
	"tasktracker/internal/handler"
	"tasktracker/internal/httpserver"
	"tasktracker/internal/repository"
	"tasktracker/internal/service/auth"
	"tasktracker/internal/service/notification"
	"tasktracker/internal/service/project"
	"tasktracker/internal/service/tag"
	"tasktracker/internal/service/task"
	"tasktracker/internal/service/timelog"
	"tasktracker/internal/service/watcher"
	"tasktracker/pkg/db"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/mq"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/outbox"
	"tasktracker/pkg/rbac"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting tasktracker api...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("port", cfg.Server.Port),
	)

	otelCfg := cfg.OTel
	otelCfg.ServiceName = cfg.OTel.ServiceName + "-api"
	shutdownTracing, err := otel.Init(otelCfg, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ Publisher，只用于管理端重放 outbox 事件
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn, log)
	permissionRepo := repository.NewPermissionRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	watcherRepo := repository.NewWatcherRepository(dbConn, log)
	commentRepo := repository.NewCommentRepository(dbConn, log)
	timeLogRepo := repository.NewTimeLogRepository(dbConn, log)
	tagRepo := repository.NewTagRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, outboxRepo, log)

	// Services
	gate := rbac.NewGate(permissionRepo, log)
	registry := watcher.NewRegistry(watcherRepo, log)
	fanout := notification.NewFanout(notificationRepo, taskRepo, registry, projectRepo, log)
	taskService := task.NewService(gate, taskRepo, projectRepo, commentRepo, registry, fanout, log)
	projectService := project.NewService(gate, projectRepo, fanout, log)
	timeLogService := timelog.NewService(gate, timeLogRepo, taskRepo, log)
	tagService := tag.NewService(gate, tagRepo, log)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.TokenTTL(), log)
	inbox := notification.NewInbox(notificationRepo, log)
	replayer := outbox.NewReplayService(outboxRepo, publisher, log)

	// Router
	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:          handler.NewAuthHandler(authService, log),
		Tasks:         handler.NewTaskHandler(taskService, log),
		Projects:      handler.NewProjectHandler(projectService, log),
		TimeLogs:      handler.NewTimeLogHandler(timeLogService, log),
		Tags:          handler.NewTagHandler(tagService, log),
		Notifications: handler.NewNotificationHandler(inbox, log),
		Admin:         handler.NewAdminHandler(replayer, log),
	}, gate, cfg.JWT.Secret, dbConn, log)

	srv := router.Server(cfg.Server.Port)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down tasktracker api gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("tasktracker api shutdown complete")
}
