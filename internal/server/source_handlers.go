package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

type Source struct {
	ID       *string  `json:"id"`
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Patterns []string `json:"patterns"`
	BuiltIn  bool     `json:"built_in"`
}

func toSource(src usecase.Source) Source {
	out := Source{
		Key:      src.Key,
		Label:    src.Label,
		Patterns: src.Patterns,
		BuiltIn:  src.BuiltIn,
	}
	if out.Patterns == nil {
		out.Patterns = []string{}
	}
	// built-in sources have no row
	if src.ID != uuid.Nil {
		id := src.ID.String()
		out.ID = &id
	}
	return out
}

func (s *Server) ListSources(ctx echo.Context) error {
	sources, err := s.server.ListSources(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	data := make([]Source, 0, len(sources))
	for _, src := range sources {
		data = append(data, toSource(src))
	}
	return ctx.JSON(http.StatusOK, Res{Data: data})
}

type CreateSourceRequest struct {
	Key      string   `json:"key" validate:"required,max=50"`
	Label    string   `json:"label" validate:"max=100"`
	Patterns []string `json:"patterns" validate:"required,min=1,dive,required,max=255"`
}

func (s *Server) CreateSource(ctx echo.Context) error {
	var req CreateSourceRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	src, err := s.server.CreateSource(ctx.Request().Context(), usecase.Source{
		Key:      req.Key,
		Label:    req.Label,
		Patterns: req.Patterns,
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toSource(src)})
}

type SourceIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) DeleteSource(ctx echo.Context) error {
	var req SourceIDRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	if err := s.server.DeleteSource(ctx.Request().Context(), id); err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
