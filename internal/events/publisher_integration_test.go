//go:build integration

package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPublisherToHub(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer rdb.Close()

	h := newTestHub()
	owner := uuid.New()
	ch, unsubscribe := h.Subscribe(owner)
	defer unsubscribe()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go h.Run(runCtx, rdb, "test:events")

	pub := NewPublisher(rdb, "test:events")
	ev := usecase.Event{Type: usecase.EventAssetReady, OwnerID: owner, AssetID: uuid.New()}

	// the subscription may not be live yet; keep publishing until it is
	require.Eventually(t, func() bool {
		require.NoError(t, pub.Publish(ctx, ev))
		select {
		case got := <-ch:
			return assert.Equal(t, ev.AssetID, got.AssetID)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 200*time.Millisecond)
}
