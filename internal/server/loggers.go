package server

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func skipLogging(c echo.Context) bool {
	return c.Request().URL.Path == "/api/health"
}

// NewEchoLogger writes one line per request. Query strings are left out
// because asset searches carry user text.
func NewEchoLogger(l *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:        true,
		LogURIPath:       true,
		LogRoutePath:     true,
		LogError:         true,
		HandleError:      true,
		LogRequestID:     true,
		LogRemoteIP:      true,
		LogMethod:        true,
		LogLatency:       true,
		LogContentLength: true,
		LogResponseSize:  true,
		Skipper:          skipLogging,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var level slog.Level
			switch {
			case v.Status >= 500 || (v.Error != nil && v.Status == 0):
				level = slog.LevelError
			case v.Status >= 400:
				level = slog.LevelWarn
			default:
				level = slog.LevelInfo
			}

			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("route", v.RoutePath),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("bytes_in", v.ContentLength),
				slog.Int64("bytes_out", v.ResponseSize),
			}
			if strings.HasPrefix(v.URIPath, "/api/extension/") {
				attrs = append(attrs, slog.String("client", "extension"))
			}
			if id := userID(c); id != uuid.Nil {
				attrs = append(attrs,
					slog.String("user_id", id.String()),
					slog.String("auth_method", authMethod(c)),
				)
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}

			l.LogAttrs(c.Request().Context(), level, "http_request", attrs...)
			return nil
		},
	})
}
