package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/usecase"
	"github.com/hibiken/asynq"
)

var _ usecase.Queue = (*Client)(nil)

// RedisOpt reads the REDIS_* env keys.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.RedisAddr(),
		Password: config.Getenv(config.ENV_KEY_REDIS_PASSWORD, ""),
	}
}

// Client wraps asynq.Client for enqueuing tasks
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewClient(opt asynq.RedisClientOpt, logger *slog.Logger) *Client {
	return &Client{
		client: asynq.NewClient(opt),
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue marshals payload as JSON and submits it with the options
// registered for taskType.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload any) error {
	task, err := NewTask(taskType, payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.InfoContext(ctx, "enqueued task",
		slog.String("task", taskType),
		slog.String("id", info.ID),
		slog.String("queue", info.Queue),
	)
	return nil
}

// NewTask builds an asynq task carrying payload as JSON.
func NewTask(taskType string, payload any) (*asynq.Task, error) {
	var b []byte
	if payload != nil {
		var err error
		if b, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to marshal task payload: %w", err)
		}
	}
	return asynq.NewTask(taskType, b, taskOptions(taskType)...), nil
}

func taskOptions(taskType string) []asynq.Option {
	switch taskType {
	case usecase.TaskAnalyzeAsset:
		return []asynq.Option{asynq.Queue("default"), asynq.MaxRetry(3), asynq.Timeout(2 * time.Minute)}
	case usecase.TaskTokenCreated:
		return []asynq.Option{asynq.Queue("low"), asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	case usecase.TaskReapOrphans:
		return []asynq.Option{asynq.Queue("critical"), asynq.MaxRetry(1), asynq.Timeout(5 * time.Minute)}
	default:
		return nil
	}
}
