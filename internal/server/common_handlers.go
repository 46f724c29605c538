package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) healthHandler(ctx echo.Context) error {
	stats := s.server.Health()
	if stats["status"] != "up" {
		return ctx.JSON(http.StatusServiceUnavailable, stats)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// eventsHandler streams the caller's asset events over a websocket.
func (s *Server) eventsHandler(ctx echo.Context) error {
	if err := s.hub.Serve(ctx.Response(), ctx.Request(), userID(ctx)); err != nil {
		s.logger.WarnContext(ctx.Request().Context(), "websocket upgrade failed", "err", err)
	}
	return nil
}
