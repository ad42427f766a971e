package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tasktracker/internal/admincli"
	"tasktracker/internal/config"
	"tasktracker/internal/repository"
	"tasktracker/internal/service/auth"
	"tasktracker/internal/service/cleanup"
	"tasktracker/pkg/db"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/mq"
	"tasktracker/pkg/outbox"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer dbConn.Close()

	outboxRepo := outbox.NewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn, outboxRepo, log)
	replayer := &lazyReplayer{url: cfg.MQ.URL, store: outboxRepo, logger: log}
	defer replayer.close()

	app := &admincli.App{
		Roles:    cfg.Roles,
		Syncer:   repository.NewPermissionRepository(dbConn, log),
		Users:    auth.NewService(repository.NewUserRepository(dbConn, log), cfg.JWT.Secret, cfg.TokenTTL(), log),
		Replayer: replayer,
		Cleanup:  cleanup.NewRetention(notificationRepo, cfg.Retention(), cfg.Notification.CleanupInterval, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return admincli.NewRootCmd(app).ExecuteContext(ctx)
}

// lazyReplayer 只有 replay-outbox 需要 RabbitMQ，首次调用时才建立连接
type lazyReplayer struct {
	url    string
	store  outbox.Store
	logger *zap.Logger

	publisher *mq.Publisher
	service   *outbox.ReplayService
}

func (r *lazyReplayer) get() (*outbox.ReplayService, error) {
	if r.service != nil {
		return r.service, nil
	}
	publisher, err := mq.NewPublisher(r.url)
	if err != nil {
		return nil, fmt.Errorf("connect mq: %w", err)
	}
	r.publisher = publisher
	r.service = outbox.NewReplayService(r.store, publisher, r.logger)
	return r.service, nil
}

func (r *lazyReplayer) ReplayEvent(ctx context.Context, eventID int64) error {
	s, err := r.get()
	if err != nil {
		return err
	}
	return s.ReplayEvent(ctx, eventID)
}

func (r *lazyReplayer) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	s, err := r.get()
	if err != nil {
		return 0, err
	}
	return s.ReplayFailedEvents(ctx, limit)
}

func (r *lazyReplayer) close() {
	if r.publisher != nil {
		r.publisher.Close()
	}
}
