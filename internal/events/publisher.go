package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/redis/go-redis/v9"
)

var _ usecase.EventPublisher = (*Publisher)(nil)

// Publisher fans asset events out through a Redis channel so every api
// instance can forward them to its websocket clients.
type Publisher struct {
	rdb     redis.Cmdable
	channel string
}

func NewPublisher(rdb redis.Cmdable, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, ev usecase.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
