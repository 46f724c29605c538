//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPreviewCache(t *testing.T) {
	ctx := context.Background()
	c := NewPreviewCache(startRedis(t))

	_, ok := c.Get(ctx, "previews/a.png")
	assert.False(t, ok)

	c.Set(ctx, "previews/a.png", "https://signed/a", time.Minute)
	v, ok := c.Get(ctx, "previews/a.png")
	require.True(t, ok)
	assert.Equal(t, "https://signed/a", v)

	c.Set(ctx, "previews/b.png", "https://signed/b", 0)
	_, ok = c.Get(ctx, "previews/b.png")
	assert.False(t, ok)
}
