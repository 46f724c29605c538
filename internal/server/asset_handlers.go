package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

type Asset struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	CaptureMethod   string         `json:"capture_method"`
	SourcePlatform  string         `json:"source_platform"`
	SourceURL       *string        `json:"source_url"`
	FileName        string         `json:"file_name"`
	MimeType        string         `json:"mime_type"`
	SizeBytes       *int64         `json:"size_bytes"`
	Width           *int           `json:"width"`
	Height          *int           `json:"height"`
	DurationSeconds *float64       `json:"duration_seconds"`
	StoragePath     *string        `json:"storage_path"`
	PreviewPath     *string        `json:"preview_path"`
	ContentHash     *string        `json:"content_hash"`
	Notes           *string        `json:"notes"`
	Extra           map[string]any `json:"extra"`
	Colors          []string       `json:"colors"`
	Tags            []Tag          `json:"tags"`
	PreviewURL      *string        `json:"preview_url"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func toAsset(a usecase.Asset) Asset {
	tags := make([]Tag, 0, len(a.Tags))
	for _, t := range a.Tags {
		tags = append(tags, toTag(t))
	}
	colors := a.Colors
	if colors == nil {
		colors = []string{}
	}
	extra := a.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	return Asset{
		ID:              a.ID.String(),
		Status:          a.Status,
		CaptureMethod:   a.CaptureMethod,
		SourcePlatform:  a.SourcePlatform,
		SourceURL:       a.SourceURL,
		FileName:        a.FileName,
		MimeType:        a.MimeType,
		SizeBytes:       a.SizeBytes,
		Width:           a.Width,
		Height:          a.Height,
		DurationSeconds: a.DurationSeconds,
		StoragePath:     a.StoragePath,
		PreviewPath:     a.PreviewPath,
		ContentHash:     a.ContentHash,
		Notes:           a.Notes,
		Extra:           extra,
		Colors:          colors,
		Tags:            tags,
		PreviewURL:      a.PreviewURL,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type SignedUpload struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

func toSignedUpload(u *usecase.SignedUpload) *SignedUpload {
	if u == nil {
		return nil
	}
	return &SignedUpload{
		Bucket:    string(u.Bucket),
		Path:      u.Path,
		URL:       u.URL,
		ExpiresAt: u.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

type UploadTicket struct {
	Asset   Asset         `json:"asset"`
	Upload  *SignedUpload `json:"upload"`
	Preview *SignedUpload `json:"preview"`
}

func toUploadTicket(t usecase.UploadTicket) UploadTicket {
	return UploadTicket{
		Asset:   toAsset(t.Asset),
		Upload:  toSignedUpload(t.Upload),
		Preview: toSignedUpload(t.Preview),
	}
}

type InitUploadRequest struct {
	FileName       string         `json:"file_name" validate:"required,max=255"`
	MimeType       string         `json:"mime_type" validate:"required"`
	SizeBytes      *int64         `json:"size_bytes" validate:"omitempty,gte=0"`
	SourcePlatform string         `json:"source_platform" validate:"max=50"`
	SourceURL      string         `json:"source_url" validate:"omitempty,url"`
	Notes          string         `json:"notes" validate:"max=5000"`
	Extra          map[string]any `json:"extra"`
}

func (r InitUploadRequest) toUsecase(method string) usecase.InitUpload {
	return usecase.InitUpload{
		FileName:       r.FileName,
		MimeType:       r.MimeType,
		SizeBytes:      r.SizeBytes,
		SourcePlatform: r.SourcePlatform,
		SourceURL:      r.SourceURL,
		Notes:          r.Notes,
		CaptureMethod:  method,
		Extra:          r.Extra,
	}
}

func (s *Server) InitUpload(ctx echo.Context) error {
	var req InitUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	ticket, err := s.server.InitUpload(ctx.Request().Context(), req.toUsecase(usecase.CaptureWebUpload))
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toUploadTicket(ticket)})
}

type FinalizeUploadRequest struct {
	AssetID         string   `json:"asset_id" validate:"required,uuid"`
	Width           *int     `json:"width" validate:"omitempty,gte=1"`
	Height          *int     `json:"height" validate:"omitempty,gte=1"`
	DurationSeconds *float64 `json:"duration_seconds" validate:"omitempty,gte=0"`
	ContentHash     *string  `json:"content_hash" validate:"omitempty,max=128"`
	SizeBytes       *int64   `json:"size_bytes" validate:"omitempty,gte=0"`
	TagIDs          []string `json:"tag_ids" validate:"omitempty,dive,uuid"`
}

func (s *Server) FinalizeUpload(ctx echo.Context) error {
	var req FinalizeUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.AssetID)
	a, err := s.server.FinalizeUpload(ctx.Request().Context(), usecase.FinalizeUpload{
		AssetID:         id,
		Width:           req.Width,
		Height:          req.Height,
		DurationSeconds: req.DurationSeconds,
		ContentHash:     req.ContentHash,
		SizeBytes:       req.SizeBytes,
		TagIDs:          parseUUIDs(req.TagIDs),
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toAsset(a)})
}

type AssetIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) GetAsset(ctx echo.Context) error {
	var req AssetIDRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	a, err := s.server.GetAsset(ctx.Request().Context(), id)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toAsset(a)})
}

type UpdateAssetRequest struct {
	ID             string         `param:"id" validate:"required,uuid"`
	Notes          *string        `json:"notes" validate:"omitempty,max=5000"`
	SourcePlatform *string        `json:"source_platform" validate:"omitempty,max=50"`
	FileName       *string        `json:"file_name" validate:"omitempty,max=255"`
	Extra          map[string]any `json:"extra"`
	TagIDs         []string       `json:"tag_ids" validate:"omitempty,dive,uuid"`
}

// UpdateAsset applies a partial update; fields absent from the body are kept.
func (s *Server) UpdateAsset(ctx echo.Context) error {
	var req UpdateAssetRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	a, err := s.server.UpdateAsset(ctx.Request().Context(), id, usecase.AssetPatch{
		Notes:          req.Notes,
		SourcePlatform: req.SourcePlatform,
		FileName:       req.FileName,
		Extra:          req.Extra,
		TagIDs:         parseUUIDs(req.TagIDs),
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toAsset(a)})
}

func (s *Server) DeleteAsset(ctx echo.Context) error {
	var req AssetIDRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	if err := s.server.DeleteAsset(ctx.Request().Context(), id); err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ListAssetsRequest struct {
	Skip           int      `query:"skip" validate:"gte=0"`
	Limit          int      `query:"limit" validate:"gte=0"`
	Query          string   `query:"q" validate:"max=200"`
	SourcePlatform string   `query:"source"`
	MimeClass      string   `query:"type" validate:"omitempty,oneof=image video"`
	From           string   `query:"from"`
	To             string   `query:"to"`
	TagIDs         []string `query:"tag_ids"`
}

func (s *Server) ListAssets(ctx echo.Context) error {
	var req ListAssetsRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	from, err := usecase.ParseDateBound(req.From, false)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	to, err := usecase.ParseDateBound(req.To, true)
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	// tag_ids may be repeated or comma separated
	var tagIDs uuid.UUIDs
	for _, raw := range req.TagIDs {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return ctx.JSON(http.StatusBadRequest, Res{Error: "invalid tag id " + part})
			}
			tagIDs = append(tagIDs, id)
		}
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = usecase.DefaultListLimit
	case limit > usecase.MaxListLimit:
		limit = usecase.MaxListLimit
	}

	assets, total, err := s.server.ListAssets(ctx.Request().Context(), usecase.ListAssetsOption{
		Skip:           req.Skip,
		Limit:          limit,
		Query:          req.Query,
		SourcePlatform: req.SourcePlatform,
		MimeClass:      req.MimeClass,
		From:           from,
		To:             to,
		TagIDs:         tagIDs,
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	data := make([]Asset, 0, len(assets))
	for _, a := range assets {
		data = append(data, toAsset(a))
	}

	return ctx.JSON(http.StatusOK, Res{Data: data, Meta: &Meta{
		Total: total,
		Skip:  req.Skip,
		Limit: limit,
	}})
}

// parseUUIDs expects validated input. nil stays nil so "not sent" and
// "sent empty" remain distinct.
func parseUUIDs(ss []string) uuid.UUIDs {
	if ss == nil {
		return nil
	}
	out := make(uuid.UUIDs, 0, len(ss))
	for _, s := range ss {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}
