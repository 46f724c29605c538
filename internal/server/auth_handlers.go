package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type CreateSessionRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// CreateSession exchanges a Firebase ID token for the session cookie.
func (s *Server) CreateSession(ctx echo.Context) error {
	var req CreateSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	value, err := s.server.CreateSession(ctx.Request().Context(), req.IDToken, s.opts.Session.MaxAge)
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	ctx.SetCookie(s.sessionCookie(value, s.opts.Session.MaxAge))
	return ctx.JSON(http.StatusOK, Res{Message: "Session created"})
}

func (s *Server) DeleteSession(ctx echo.Context) error {
	ctx.SetCookie(s.sessionCookie("", -1))
	return ctx.NoContent(http.StatusNoContent)
}

// a negative maxAge expires the cookie immediately
func (s *Server) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     s.opts.Session.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}
