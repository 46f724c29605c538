package usecase

import (
	"github.com/google/uuid"
)

// background task types handled by cmd/worker
const (
	TaskAnalyzeAsset = "asset:analyze"
	TaskReapOrphans  = "asset:reap"
	TaskTokenCreated = "email:token_created"
)

type AnalyzeAssetPayload struct {
	AssetID uuid.UUID `json:"asset_id"`
}

type TokenCreatedPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	TokenID uuid.UUID `json:"token_id"`
}
