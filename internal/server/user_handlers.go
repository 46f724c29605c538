package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

type User struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	AuthMethod string `json:"auth_method,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toUser(u usecase.User) User {
	return User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) GetMe(ctx echo.Context) error {
	u, err := s.server.GetMe(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	data := toUser(u)
	data.AuthMethod = authMethod(ctx)
	return ctx.JSON(http.StatusOK, Res{Data: data})
}
