package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/adstash/adstash/internal/cache"
	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/database"
	"github.com/adstash/adstash/internal/events"
	"github.com/adstash/adstash/internal/filestorage"
	"github.com/adstash/adstash/internal/firebase"
	"github.com/adstash/adstash/internal/queue"
	"github.com/adstash/adstash/internal/telemetry"
	"github.com/adstash/adstash/internal/usecase"
)

// App owns the HTTP server and everything it needs to shut down cleanly.
type App struct {
	http     *http.Server
	uc       usecase.Usecase
	queue    *queue.Client
	rdb      *redis.Client
	stopHub  context.CancelFunc
	shutdown telemetry.ShutdownFunc
	logger   *slog.Logger
}

func NewApp(logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	otelShutdown, err := telemetry.Setup(ctx, "adstash-api")
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.DSN(), logger)
	if err != nil {
		return nil, err
	}
	repo, err := database.New(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	fb, err := firebase.New(ctx, config.Getenv(config.ENV_KEY_FIREBASE_KEY_PATH, ""))
	if err != nil {
		repo.Close()
		return nil, err
	}

	fsp, err := filestorage.NewFromEnv(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create file storage: %w", err)
	}

	rdb, err := cache.NewRedisClient(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}

	qc := queue.NewClient(queue.RedisOpt(), logger)

	uc := usecase.New(repo, fb, fsp, nil, qc).
		WithEventPublisher(events.NewPublisher(rdb, config.EVENTS_CHANNEL)).
		WithPreviewCache(cache.NewPreviewCache(rdb)).
		WithUploadMaxBytes(int64(config.GetenvInt(config.ENV_KEY_UPLOAD_MAX_BYTES, config.DEFAULT_UPLOAD_MAX_BYTES)))

	var origins []string
	if v := config.Getenv(config.ENV_KEY_ALLOW_ORIGINS, ""); v != "" {
		origins = strings.Split(v, ",")
	}

	hub := events.NewHub(logger, origins...)
	hubCtx, stopHub := context.WithCancel(ctx)
	go func() {
		if err := hub.Run(hubCtx, rdb, config.EVENTS_CHANNEL); err != nil {
			logger.Error("event hub stopped", slog.Any("err", err))
		}
	}()

	srv := NewServer(uc, hub, logger, Options{
		Session: SessionConfig{
			CookieName: config.Getenv(config.ENV_KEY_SESSION_COOKIE_NAME, config.DEFAULT_SESSION_COOKIE),
			MaxAge:     time.Duration(config.GetenvInt(config.ENV_KEY_SESSION_COOKIE_DAYS, config.DEFAULT_SESSION_DAYS)) * 24 * time.Hour,
			Secure:     config.GetenvBool(config.ENV_KEY_SESSION_COOKIE_SECURE, config.Getenv(config.ENV_KEY_APP_ENV, "") != "local"),
		},
		ExtensionRate: float64(config.GetenvInt(config.ENV_KEY_EXTENSION_RATE_LIMIT, config.DEFAULT_EXTENSION_RATE)),
		AllowOrigins:  origins,
	})

	return &App{
		http: &http.Server{
			Addr:         ":" + config.Getenv(config.ENV_KEY_PORT, "8080"),
			Handler:      srv.RegisterRoutes(),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		uc:       uc,
		queue:    qc,
		rdb:      rdb,
		stopHub:  stopHub,
		shutdown: otelShutdown,
		logger:   logger,
	}, nil
}

func (a *App) Addr() string {
	return a.http.Addr
}

// ListenAndServe returns nil after a graceful Shutdown.
func (a *App) ListenAndServe() error {
	if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.http.Shutdown(ctx)
	a.stopHub()
	return errors.Join(
		err,
		a.queue.Close(),
		a.rdb.Close(),
		a.uc.Close(),
		a.shutdown(ctx),
	)
}
