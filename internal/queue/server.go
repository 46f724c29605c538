package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/adstash/adstash/internal/cache"
	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/database"
	"github.com/adstash/adstash/internal/email"
	"github.com/adstash/adstash/internal/events"
	"github.com/adstash/adstash/internal/filestorage"
	"github.com/adstash/adstash/internal/queue/handlers"
	"github.com/adstash/adstash/internal/usecase"
)

// Worker represents a worker application with all its dependencies
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	uc     usecase.Usecase
	rdb    *redis.Client
	logger *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(logger *slog.Logger) (*Worker, error) {
	ctx := context.Background()
	logger.Info("initializing worker dependencies")

	db, err := database.Open(database.DSN(), logger)
	if err != nil {
		return nil, err
	}
	repo, err := database.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	fsp, err := filestorage.NewFromEnv(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create file storage: %w", err)
	}

	// SMTP is optional; without it token notices are skipped
	var mailer usecase.MailProvider
	if host := config.Getenv(config.ENV_KEY_SMTP_HOST, ""); host != "" {
		mp, err := email.NewEmailProvider(
			host,
			config.Getenv(config.ENV_KEY_SMTP_USERNAME, ""),
			config.Getenv(config.ENV_KEY_SMTP_PASSWORD, ""),
			config.Getenv(config.ENV_KEY_SMTP_PORT, "587"),
		)
		if err != nil {
			repo.Close()
			return nil, err
		}
		mailer = mp
	}

	rdb, err := cache.NewRedisClient(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// the worker never enqueues, so it gets no queue client
	uc := usecase.New(repo, nil, fsp, mailer, nil).
		WithEventPublisher(events.NewPublisher(rdb, config.EVENTS_CHANNEL)).
		WithOrphanTTL(config.GetenvDuration(config.ENV_KEY_ORPHAN_TTL, 0)).
		WithMailFrom(config.Getenv(config.ENV_KEY_SMTP_FROM, ""))

	server := asynq.NewServer(RedisOpt(), asynq.Config{
		Concurrency: config.GetenvInt(config.ENV_KEY_WORKER_CONCURRENCY, 10),
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		Logger:   NewLogger(logger),
		LogLevel: asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.ErrorContext(ctx, "task failed",
				slog.String("task", task.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("err", err),
			)
		}),
	})

	mux := asynq.NewServeMux()
	handlers.NewHandlers(uc, logger).Register(mux)

	logger.Info("worker registered handlers",
		slog.Any("tasks", []string{usecase.TaskAnalyzeAsset, usecase.TaskTokenCreated, usecase.TaskReapOrphans}),
	)

	return &Worker{
		server: server,
		mux:    mux,
		uc:     uc,
		rdb:    rdb,
		logger: logger,
	}, nil
}

// Start begins processing tasks in the background.
func (w *Worker) Start() error {
	w.logger.Info("worker started")
	return w.server.Start(w.mux)
}

// Stop stops the worker server gracefully
func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	w.server.Shutdown()

	if err := w.rdb.Close(); err != nil {
		w.logger.Error("error closing redis", slog.Any("err", err))
	}
	if err := w.uc.Close(); err != nil {
		w.logger.Error("error closing database", slog.Any("err", err))
	}
}
