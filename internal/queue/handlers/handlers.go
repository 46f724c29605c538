package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Processor is the slice of usecase.Usecase the worker drives.
type Processor interface {
	ProcessAnalyzeAsset(ctx context.Context, id uuid.UUID) error
	ProcessReapOrphans(ctx context.Context) (int, error)
	SendTokenCreatedEmail(ctx context.Context, userID, tokenID uuid.UUID) error
}

// Handlers contains all queue task handlers
type Handlers struct {
	usecase Processor
	logger  *slog.Logger
}

func NewHandlers(uc Processor, logger *slog.Logger) *Handlers {
	return &Handlers{
		usecase: uc,
		logger:  logger,
	}
}

// Register binds every task type to its handler.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(usecase.TaskAnalyzeAsset, h.HandleAnalyzeAsset)
	mux.HandleFunc(usecase.TaskTokenCreated, h.HandleTokenCreated)
	mux.HandleFunc(usecase.TaskReapOrphans, h.HandleReapOrphans)
}

// decode rejects payloads that can never succeed so asynq does not retry them.
func decode(task *asynq.Task, v any) error {
	if err := json.Unmarshal(task.Payload(), v); err != nil {
		return fmt.Errorf("parse %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return nil
}

// HandleAnalyzeAsset is a thin wrapper around Usecase.ProcessAnalyzeAsset.
func (h *Handlers) HandleAnalyzeAsset(ctx context.Context, task *asynq.Task) error {
	var p usecase.AnalyzeAssetPayload
	if err := decode(task, &p); err != nil {
		h.logger.ErrorContext(ctx, "invalid task payload", slog.String("task", task.Type()), slog.Any("err", err))
		return err
	}
	if p.AssetID == uuid.Nil {
		return fmt.Errorf("missing asset_id: %w", asynq.SkipRetry)
	}

	h.logger.InfoContext(ctx, "analyzing asset", slog.String("asset_id", p.AssetID.String()))
	if err := h.usecase.ProcessAnalyzeAsset(ctx, p.AssetID); err != nil {
		h.logger.ErrorContext(ctx, "analyze asset failed",
			slog.String("asset_id", p.AssetID.String()),
			slog.Any("err", err),
		)
		return err
	}
	return nil
}

func (h *Handlers) HandleTokenCreated(ctx context.Context, task *asynq.Task) error {
	var p usecase.TokenCreatedPayload
	if err := decode(task, &p); err != nil {
		h.logger.ErrorContext(ctx, "invalid task payload", slog.String("task", task.Type()), slog.Any("err", err))
		return err
	}
	if p.UserID == uuid.Nil || p.TokenID == uuid.Nil {
		return fmt.Errorf("missing user_id or token_id: %w", asynq.SkipRetry)
	}

	if err := h.usecase.SendTokenCreatedEmail(ctx, p.UserID, p.TokenID); err != nil {
		h.logger.ErrorContext(ctx, "token created email failed",
			slog.String("user_id", p.UserID.String()),
			slog.Any("err", err),
		)
		return err
	}
	return nil
}

func (h *Handlers) HandleReapOrphans(ctx context.Context, _ *asynq.Task) error {
	n, err := h.usecase.ProcessReapOrphans(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "reap orphans failed", slog.Int("reaped", n), slog.Any("err", err))
		return err
	}
	h.logger.InfoContext(ctx, "reaped orphan uploads", slog.Int("reaped", n))
	return nil
}
