package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	contractmq "tasktracker/contracts/mq"
	"tasktracker/internal/config"
	"tasktracker/internal/mqhandler"
	"tasktracker/internal/repository"
	"tasktracker/internal/service/cleanup"
	"tasktracker/internal/service/delivery"
	"tasktracker/pkg/circuitbreaker"
	pkgconfig "tasktracker/pkg/config"
	"tasktracker/pkg/db"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/mq"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/outbox"
	redisclient "tasktracker/pkg/redis"
	"tasktracker/pkg/util"
)

const notificationQueue = "notification.created.q"

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting tasktracker worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Int("max_delivery_retries", cfg.Notification.MaxDeliveryRetries),
	)

	otelCfg := cfg.OTel
	otelCfg.ServiceName = cfg.OTel.ServiceName + "-worker"
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

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbox Dispatcher
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Notification.DispatchInterval)
	go dispatcher.Start(ctx)

	// Delivery
	userRepo := repository.NewUserRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, outboxRepo, log)
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Mailer circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	sender := delivery.NewSender(userRepo, notificationRepo, delivery.NewLogMailer(log), breaker, log)

	handler := mqhandler.NewNotificationCreatedHandler(
		sender,
		util.NewDeduper(rdb, cfg.Notification.DedupTTL, log),
		util.NewRetryCounter(rdb, cfg.Notification.DedupTTL),
		publisher,
		cfg.Notification.MaxDeliveryRetries,
		log,
	)

	// MQ Consumer
	consumer, err := mq.NewConsumer(cfg.MQ.URL, notificationQueue, contractmq.RoutingKeyNotificationCreated, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	if _, err := mq.DeclareDLQQueue(consumer.Channel(), contractmq.RoutingKeyNotificationCreated); err != nil {
		log.Fatal("Failed to declare DLQ", zap.Error(err))
	}

	consumer.SetHandler(handler.Handle)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()
	log.Info("notification.created consumer started", zap.String("queue", notificationQueue))

	// Retention
	retention := cleanup.NewRetention(notificationRepo, cfg.Retention(), cfg.Notification.CleanupInterval, log)
	go retention.Run(ctx)

	// HTTP Server (health checks and metrics)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		if !consumer.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := pkgconfig.GetEnv("WORKER_HTTP_ADDR", ":8081")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Worker HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down tasktracker worker gracefully...")
	cancel()
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("tasktracker worker shutdown complete")
}
