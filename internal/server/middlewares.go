package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/usecase"
)

var errNoCredentials = errors.New("authorization header or session cookie is required")

// authenticate accepts, in order: a bearer PAT, a bearer Firebase ID token,
// or the session cookie.
func (s *Server) authenticate(ctx echo.Context) (uuid.UUID, string, error) {
	var (
		rctx = ctx.Request().Context()
		auth = ctx.Request().Header.Get(config.HEADER_KEY_AUTHORIZATION)
	)

	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		token = strings.TrimSpace(token)
		if strings.HasPrefix(token, usecase.TokenPrefix) {
			userID, err := s.server.VerifyToken(rctx, token)
			return userID, config.AUTH_METHOD_PAT, err
		}
		uid, err := s.server.VerifyIDToken(rctx, token)
		if err != nil {
			return uuid.Nil, "", err
		}
		u, err := s.server.ResolveUID(rctx, uid)
		return u.ID, config.AUTH_METHOD_ID_TOKEN, err
	}

	cookie, err := ctx.Cookie(s.opts.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, "", errNoCredentials
	}
	uid, err := s.server.VerifySessionCookie(rctx, cookie.Value)
	if err != nil {
		return uuid.Nil, "", err
	}
	u, err := s.server.ResolveUID(rctx, uid)
	return u.ID, config.AUTH_METHOD_SESSION, err
}

// AuthMiddleware resolves the caller to a local user and stores the user id
// and auth method in the request context.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		userID, method, err := s.authenticate(ctx)
		if err != nil {
			if !errors.Is(err, usecase.ErrUnauthenticated) && !errors.Is(err, errNoCredentials) {
				return s.errorJSON(ctx, err)
			}
			return ctx.JSON(http.StatusUnauthorized, Res{
				Error:   err.Error(),
				Message: "Invalid credentials",
			})
		}

		rctx := usecase.WithUserID(ctx.Request().Context(), userID)
		rctx = context.WithValue(rctx, config.CTX_KEY_AUTH_METHOD, method)
		ctx.SetRequest(ctx.Request().WithContext(rctx))

		return next(ctx)
	}
}

func authMethod(ctx echo.Context) string {
	m, _ := ctx.Request().Context().Value(config.CTX_KEY_AUTH_METHOD).(string)
	return m
}

func userID(ctx echo.Context) uuid.UUID {
	id, _ := ctx.Request().Context().Value(config.CTX_KEY_USER_ID).(uuid.UUID)
	return id
}

// SessionOnly keeps personal access tokens away from routes that manage them.
func (s *Server) SessionOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if authMethod(ctx) == config.AUTH_METHOD_PAT {
			return ctx.JSON(http.StatusUnauthorized, Res{
				Error:   "session required",
				Message: "Access tokens cannot manage access tokens",
			})
		}
		return next(ctx)
	}
}

// TokenOnly restricts the extension API to personal access tokens.
func (s *Server) TokenOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if authMethod(ctx) != config.AUTH_METHOD_PAT {
			return ctx.JSON(http.StatusUnauthorized, Res{
				Error:   "access token required",
				Message: "Use a personal access token",
			})
		}
		return next(ctx)
	}
}

// ExtensionRateLimiter throttles per authenticated user, falling back to the
// client IP.
func (s *Server) ExtensionRateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(s.opts.ExtensionRate),
		Burst:     max(1, int(s.opts.ExtensionRate)*2),
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			if id := userID(ctx); id != uuid.Nil {
				return id.String(), nil
			}
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, Res{Error: err.Error()})
		},
		DenyHandler: func(ctx echo.Context, _ string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, Res{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
			})
		},
	})
}
