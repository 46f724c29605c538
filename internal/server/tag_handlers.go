package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	AssetCount int    `json:"asset_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toTag(t usecase.Tag) Tag {
	return Tag{
		ID:         t.ID.String(),
		Name:       t.Name,
		Color:      t.Color,
		AssetCount: t.AssetCount,
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) ListTags(ctx echo.Context) error {
	tags, err := s.server.ListTags(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	data := make([]Tag, 0, len(tags))
	for _, t := range tags {
		data = append(data, toTag(t))
	}
	return ctx.JSON(http.StatusOK, Res{Data: data, Meta: &Meta{
		Total: len(data),
		Limit: len(data),
	}})
}

type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,max=7"`
}

func (s *Server) CreateTag(ctx echo.Context) error {
	var req CreateTagRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	t, err := s.server.CreateTag(ctx.Request().Context(), req.Name, req.Color)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toTag(t)})
}

type UpdateTagRequest struct {
	ID    string  `param:"id" validate:"required,uuid"`
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Color *string `json:"color" validate:"omitempty,max=7"`
}

func (s *Server) UpdateTag(ctx echo.Context) error {
	var req UpdateTagRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	t, err := s.server.UpdateTag(ctx.Request().Context(), id, usecase.TagPatch{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusOK, Res{Data: toTag(t)})
}

type TagIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) DeleteTag(ctx echo.Context) error {
	var req TagIDRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	if err := s.server.DeleteTag(ctx.Request().Context(), id); err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
