package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// per-connection buffer; events beyond it are dropped for that connection
const subscriberBuffer = 16

type subscriber struct {
	ch chan usecase.Event
}

// Hub routes events to the websocket connections of their owner.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*subscriber]struct{}
	origins []string
	logger  *slog.Logger
}

// NewHub accepts websocket upgrades from the request host and any extra
// origin patterns given.
func NewHub(logger *slog.Logger, origins ...string) *Hub {
	return &Hub{
		subs:    make(map[uuid.UUID]map[*subscriber]struct{}),
		origins: origins,
		logger:  logger,
	}
}

func (h *Hub) subscribers(owner uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[owner])
}

// Subscribe registers a listener for owner. The returned func unregisters it.
func (h *Hub) Subscribe(owner uuid.UUID) (<-chan usecase.Event, func()) {
	s := &subscriber{ch: make(chan usecase.Event, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*subscriber]struct{})
	}
	h.subs[owner][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[owner], s)
			if len(h.subs[owner]) == 0 {
				delete(h.subs, owner)
			}
			h.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every listener of its owner without blocking.
func (h *Hub) Dispatch(ev usecase.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.OwnerID] {
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("event dropped for slow subscriber",
				slog.String("owner_id", ev.OwnerID.String()),
				slog.String("type", ev.Type),
			)
		}
	}
}

// Publish satisfies usecase.EventPublisher for single-process setups.
func (h *Hub) Publish(_ context.Context, ev usecase.Event) error {
	h.Dispatch(ev)
	return nil
}

func (h *Hub) handleMessage(payload string) {
	var ev usecase.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		h.logger.Warn("malformed event", slog.Any("err", err))
		return
	}
	h.Dispatch(ev)
}

// Run forwards messages from the Redis channel until ctx is done.
func (h *Hub) Run(ctx context.Context, rdb *redis.Client, channel string) error {
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.logger.Info("subscribed to events", slog.String("channel", channel))

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.handleMessage(msg.Payload)
		}
	}
}

// Serve upgrades the request and streams owner's events as JSON text frames
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, owner uuid.UUID) error {
	// the server's request timeouts would otherwise cut long-lived streams
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	// subscribe first so nothing published after the handshake is missed
	events, cancel := h.Subscribe(owner)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	// clients never send; CloseRead handles pings and reports disconnects
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				h.logger.Debug("websocket write", slog.Any("err", err))
				return nil
			}
		}
	}
}
