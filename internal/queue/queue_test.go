package queue

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ asynq.Logger = (*Logger)(nil)

func TestNewTask(t *testing.T) {
	id := uuid.New()
	task, err := NewTask(usecase.TaskAnalyzeAsset, usecase.AnalyzeAssetPayload{AssetID: id})
	require.NoError(t, err)
	assert.Equal(t, usecase.TaskAnalyzeAsset, task.Type())

	var p usecase.AnalyzeAssetPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, id, p.AssetID)

	task, err = NewTask(usecase.TaskReapOrphans, nil)
	require.NoError(t, err)
	assert.Empty(t, task.Payload())

	_, err = NewTask("bad", make(chan int))
	assert.Error(t, err)
}

func TestTaskOptions(t *testing.T) {
	for _, typ := range []string{usecase.TaskAnalyzeAsset, usecase.TaskTokenCreated, usecase.TaskReapOrphans} {
		assert.NotEmpty(t, taskOptions(typ), typ)
	}
	assert.Empty(t, taskOptions("unknown"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Warn("retrying ", 3)
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "WARN", m["level"])
	assert.Equal(t, "retrying 3", m["msg"])
	assert.Equal(t, "asynq", m["component"])
}

func TestRedisOpt(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6390")
	t.Setenv("REDIS_PASSWORD", "pw")
	opt := RedisOpt()
	assert.Equal(t, "redis:6390", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
}
