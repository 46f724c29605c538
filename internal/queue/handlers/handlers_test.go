package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessAnalyzeAsset(ctx context.Context, id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *mockProcessor) ProcessReapOrphans(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockProcessor) SendTokenCreatedEmail(ctx context.Context, userID, tokenID uuid.UUID) error {
	return m.Called(userID, tokenID).Error(0)
}

func newTestHandlers(p Processor) *Handlers {
	return NewHandlers(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleAnalyzeAsset(t *testing.T) {
	id := uuid.New()
	p := new(mockProcessor)
	p.On("ProcessAnalyzeAsset", id).Return(nil).Once()
	h := newTestHandlers(p)

	task := asynq.NewTask(usecase.TaskAnalyzeAsset, []byte(`{"asset_id":"`+id.String()+`"}`))
	require.NoError(t, h.HandleAnalyzeAsset(context.Background(), task))
	p.AssertExpectations(t)
}

func TestHandleAnalyzeAsset_BadPayloadSkipsRetry(t *testing.T) {
	p := new(mockProcessor)
	h := newTestHandlers(p)

	err := h.HandleAnalyzeAsset(context.Background(), asynq.NewTask(usecase.TaskAnalyzeAsset, []byte(`{`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleAnalyzeAsset(context.Background(), asynq.NewTask(usecase.TaskAnalyzeAsset, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	p.AssertNotCalled(t, "ProcessAnalyzeAsset", mock.Anything)
}

func TestHandleAnalyzeAsset_PropagatesFailure(t *testing.T) {
	id := uuid.New()
	boom := errors.New("storage down")
	p := new(mockProcessor)
	p.On("ProcessAnalyzeAsset", id).Return(boom)
	h := newTestHandlers(p)

	task := asynq.NewTask(usecase.TaskAnalyzeAsset, []byte(`{"asset_id":"`+id.String()+`"}`))
	assert.ErrorIs(t, h.HandleAnalyzeAsset(context.Background(), task), boom)
}

func TestHandleTokenCreated(t *testing.T) {
	userID, tokenID := uuid.New(), uuid.New()
	p := new(mockProcessor)
	p.On("SendTokenCreatedEmail", userID, tokenID).Return(nil).Once()
	h := newTestHandlers(p)

	payload := `{"user_id":"` + userID.String() + `","token_id":"` + tokenID.String() + `"}`
	require.NoError(t, h.HandleTokenCreated(context.Background(), asynq.NewTask(usecase.TaskTokenCreated, []byte(payload))))
	p.AssertExpectations(t)

	err := h.HandleTokenCreated(context.Background(), asynq.NewTask(usecase.TaskTokenCreated, []byte(`{"user_id":"`+userID.String()+`"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReapOrphans(t *testing.T) {
	p := new(mockProcessor)
	p.On("ProcessReapOrphans").Return(3, nil).Once()
	h := newTestHandlers(p)

	require.NoError(t, h.HandleReapOrphans(context.Background(), asynq.NewTask(usecase.TaskReapOrphans, nil)))
	p.AssertExpectations(t)
}

func TestRegister(t *testing.T) {
	p := new(mockProcessor)
	p.On("ProcessReapOrphans").Return(0, nil).Once()
	mux := asynq.NewServeMux()
	newTestHandlers(p).Register(mux)

	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(usecase.TaskReapOrphans, nil)))
	p.AssertExpectations(t)
}
