package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	_ "repayment-engine/docs"
	"repayment-engine/internal/api"
	"repayment-engine/internal/api/middleware"
	"repayment-engine/internal/batch"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"repayment-engine/internal/event"
	"repayment-engine/internal/infrastructure/cache"
	"repayment-engine/internal/infrastructure/database/postgres"
	"repayment-engine/internal/infrastructure/kiva"
	"repayment-engine/internal/infrastructure/logging"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title Repayment Engine API
// @version 1.0
// @description Computes lender repayment schedules for funded microloans and records them in PostgreSQL.
// @termsOfService http://repayment-engine.local/terms/

// @contact.name API Support
// @contact.url http://repayment-engine.local/support
// @contact.email support@repayment-engine.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)
	rabbitMQConn := initializeRabbitMQ(cfg, logger)
	redisClient := initializeRedisClient(cfg, logger)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger)

	sources := kiva.NewFactory(cfg.Kiva, logger)
	service, persistenceEnabled := initializeServices(cfg, dbPool, rabbitMQConn, redisClient, logger)

	var cronScheduler *cron.Cron
	if cfg.Batch.Enabled && persistenceEnabled {
		cronScheduler = startBatchJobs(cfg, logger, batch.NewScheduleSyncJob(sources, service, logger))
	} else {
		logger.Info("Schedule sync job not scheduled", "batch_enabled", cfg.Batch.Enabled, "persistence_enabled", persistenceEnabled)
	}

	auditConsumer := startIntegrityAudit(cfg, rabbitMQConn, service, sources, persistenceEnabled, logger)

	router := api.SetupRouter(rateLimiter, service, sources, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, auditConsumer, rabbitMQConn, redisClient, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed(), "kiva_test_mode", cfg.Kiva.TestMode)

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	if !cfg.Database.Enabled {
		logger.Info("Database persistence is disabled; statements will only be generated.")
		return nil
	}

	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	if dbPool == nil {
		return
	}
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeServices leaves each optional collaborator as a nil interface
// when its backend is not configured.
func initializeServices(cfg *config.Config, dbPool *pgxpool.Pool, rabbitConn *amqp.Connection, redisClient *redis.Client, logger *slog.Logger) (repayment.Service, bool) {
	logger.Info("Initializing application components...")

	var executor repayment.Executor
	if dbPool != nil {
		executor = postgres.NewScheduleRepository(dbPool, logger)
	}

	var publisher repayment.EventPublisher
	if rabbitConn != nil {
		p, err := event.NewRabbitMQEventPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
		if err != nil {
			logger.Error("Failed to initialize event publisher, events disabled", "error", err)
		} else {
			publisher = p
		}
	}

	var marker repayment.ProcessedLoanMarker
	if redisClient != nil {
		marker = cache.NewRedisLoanMarker(redisClient, cfg.Redis.ProcessedTTL, logger)
	}

	return repayment.NewService(executor, publisher, marker, logger), executor != nil
}

// startIntegrityAudit consumes the events this process publishes and re-checks
// the persisted totals. It needs both the broker and the database.
func startIntegrityAudit(cfg *config.Config, rabbitConn *amqp.Connection, service repayment.Service, sources loan.SourceFactory,
	persistenceEnabled bool, logger *slog.Logger) *event.Consumer {
	if rabbitConn == nil || !persistenceEnabled || cfg.RabbitMQ.AuditQueueName == "" {
		logger.Info("Integrity audit consumer not started",
			"rabbitmq_connected", rabbitConn != nil,
			"persistence_enabled", persistenceEnabled,
			"queue", cfg.RabbitMQ.AuditQueueName)
		return nil
	}

	handler := event.NewIntegrityAuditHandler(service, sources, logger)
	consumer, err := event.NewConsumer(
		rabbitConn,
		cfg.RabbitMQ.ExchangeName,
		cfg.RabbitMQ.AuditQueueName,
		"repayment-engine-audit",
		[]string{event.RoutingKeySchedulePersisted},
		handler.HandleDelivery,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create integrity audit consumer", "error", err)
		return nil
	}
	if err := consumer.Start(context.Background()); err != nil {
		logger.Error("Failed to start integrity audit consumer", "error", err)
		return nil
	}
	return consumer
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, auditConsumer *event.Consumer, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	if auditConsumer != nil {
		auditConsumer.Stop()
	}
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	if cronScheduler == nil {
		return
	}
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("RabbitMQ host is not configured")
	}
	port := cfg.Port
	if port == 0 {
		port = 5672
	}
	if cfg.Username != "" && cfg.Password != "" {
		return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Host, port), nil
	}
	if cfg.Username != "" || cfg.Password != "" {
		return "", fmt.Errorf("RabbitMQ username and password must be provided together")
	}
	return fmt.Sprintf("amqp://%s:%d/", cfg.Host, port), nil
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

// initializeRabbitMQ returns nil when events are disabled or the broker is
// unreachable. Publishing is best effort and never blocks startup.
func initializeRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ events are disabled.")
		return nil
	}

	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		logger.Error("Invalid RabbitMQ configuration, events disabled", "error", err)
		return nil
	}

	conn, err := connectRabbitMQ(uri, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, events disabled", "error", err)
		return nil
	}
	return conn
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn != nil && !rabbitConn.IsClosed() {
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	} else if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
	} else {
		logger.Info("RabbitMQ connection already closed, skipping close.")
	}
}

func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Redis is disabled; processed-loan tracking and shared rate limiting are off.")
		return nil
	}

	logger.Info("Initializing central Redis client...")
	if cfg.Redis.Addr == "" {
		logger.Error("Redis address (addr) is not configured.")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		os.Exit(1)
	}

	logger.Info("Central Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient == nil {
		logger.Info("Redis client was not initialized, skipping close.")
		return
	}
	logger.Info("Closing central Redis client connection...")
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close central Redis client connection gracefully", "error", err)
	} else {
		logger.Info("Central Redis client connection closed.")
	}
}

func syncJobSettings(cfg config.BatchConfig, logger *slog.Logger) (string, time.Duration) {
	scheduleSpec := cfg.ScheduleSyncSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 */6 * * *"
		logger.Warn("Schedule sync cron spec not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.ScheduleSyncTimeout
	if jobTimeout <= 0 {
		jobTimeout = 1 * time.Hour
	} else {
		jobTimeout = jobTimeout * time.Second
	}
	return scheduleSpec, jobTimeout
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, syncJob *batch.ScheduleSyncJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec, jobTimeout := syncJobSettings(cfg.Batch, logger)

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "ScheduleSync")
		jobLogger.Info("Cron triggered: Running schedule sync job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := syncJob.Run(ctx); runErr != nil {
			jobLogger.Error("Schedule sync job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Schedule sync job finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule sync job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled sync job", "schedule", scheduleSpec, "job_id", jobID, "timeout", jobTimeout)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
