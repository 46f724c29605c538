package queue

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/usecase"
)

// Scheduler enqueues periodic maintenance tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s := asynq.NewScheduler(RedisOpt(), &asynq.SchedulerOpts{
		Logger:   NewLogger(logger),
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("scheduled enqueue failed", slog.Any("err", err))
				return
			}
			logger.Info("scheduled task enqueued",
				slog.String("task", info.Type),
				slog.String("id", info.ID),
			)
		},
	})

	task, err := NewTask(usecase.TaskReapOrphans, nil)
	if err != nil {
		return nil, err
	}
	spec := config.Getenv(config.ENV_KEY_REAP_SCHEDULE, config.DEFAULT_REAP_SCHEDULE)
	id, err := s.Register(spec, task)
	if err != nil {
		return nil, err
	}
	logger.Info("registered periodic task",
		slog.String("task", usecase.TaskReapOrphans),
		slog.String("schedule", spec),
		slog.String("entry_id", id),
	)

	return &Scheduler{scheduler: s, logger: logger}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.scheduler.Shutdown()
}
