package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventAssetReady    = "asset.ready"
	EventAssetAnalyzed = "asset.analyzed"
	EventAssetDeleted  = "asset.deleted"
)

// Event is fanned out to the owner's open websocket connections.
type Event struct {
	Type    string    `json:"type"`
	OwnerID uuid.UUID `json:"owner_id"`
	AssetID uuid.UUID `json:"asset_id"`
	At      time.Time `json:"at"`
}

func (u Usecase) publish(ctx context.Context, typ string, a Asset) {
	if u.events == nil {
		return
	}
	err := u.events.Publish(ctx, Event{
		Type:    typ,
		OwnerID: a.OwnerID,
		AssetID: a.ID,
		At:      u.clock(),
	})
	if err != nil {
		slog.WarnContext(ctx, "publish event", "type", typ, "asset_id", a.ID, "err", err)
	}
}

func (u Usecase) enqueue(ctx context.Context, taskType string, payload any) {
	if u.queue == nil {
		return
	}
	if err := u.queue.Enqueue(ctx, taskType, payload); err != nil {
		slog.WarnContext(ctx, "enqueue task", "task", taskType, "err", err)
	}
}
