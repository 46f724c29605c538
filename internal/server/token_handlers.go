package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/usecase"
)

type AccessToken struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Prefix     string  `json:"prefix"`
	LastUsedAt *string `json:"last_used_at"`
	RevokedAt  *string `json:"revoked_at"`
	ExpiresAt  *string `json:"expires_at"`
	CreatedAt  string  `json:"created_at"`
}

// IssuedToken is the only response that ever carries the raw token.
type IssuedToken struct {
	AccessToken
	Token     string `json:"token"`
	QRCodeURL string `json:"qr_code_url"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toAccessToken(t usecase.AccessToken) AccessToken {
	return AccessToken{
		ID:         t.ID.String(),
		Name:       t.Name,
		Prefix:     t.Prefix,
		LastUsedAt: formatTime(t.LastUsedAt),
		RevokedAt:  formatTime(t.RevokedAt),
		ExpiresAt:  formatTime(t.ExpiresAt),
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) ListTokens(ctx echo.Context) error {
	tokens, err := s.server.ListTokens(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	data := make([]AccessToken, 0, len(tokens))
	for _, t := range tokens {
		data = append(data, toAccessToken(t))
	}
	return ctx.JSON(http.StatusOK, Res{Data: data})
}

type CreateTokenRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) CreateToken(ctx echo.Context) error {
	var req CreateTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	t, err := s.server.CreateToken(ctx.Request().Context(), req.Name, req.ExpiresAt)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{
		Data: IssuedToken{
			AccessToken: toAccessToken(t.AccessToken),
			Token:       t.Token,
			QRCodeURL:   t.QRCodeURL,
		},
		Message: "Copy this token now, it will not be shown again",
	})
}

type TokenIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) RevokeToken(ctx echo.Context) error {
	var req TokenIDRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	id, _ := uuid.Parse(req.ID)
	if err := s.server.RevokeToken(ctx.Request().Context(), id); err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
