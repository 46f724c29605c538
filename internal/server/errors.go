package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

// errorJSON maps usecase sentinels onto status codes. Anything unrecognised
// is logged and reported as a generic 500.
func (s *Server) errorJSON(ctx echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, usecase.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, usecase.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrConflict):
		status = http.StatusConflict
	default:
		s.logger.ErrorContext(ctx.Request().Context(), "unexpected error",
			slog.String("method", ctx.Request().Method),
			slog.String("path", ctx.Path()),
			slog.Any("err", err),
		)
		return ctx.JSON(http.StatusInternalServerError, Res{
			Error:   "internal server error",
			Message: "Something went wrong",
		})
	}
	return ctx.JSON(status, Res{Error: err.Error()})
}

func bindError(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
}

func validateError(ctx echo.Context, err error) error {
	return ctx.JSON(http.StatusUnprocessableEntity, Res{Error: err.Error()})
}
