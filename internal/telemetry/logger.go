package telemetry

import (
	"io"
	"log/slog"
	"os"

	"github.com/adstash/adstash/internal/config"
)

// NewLogger writes JSON at LOG_LEVEL with trace ids attached.
func NewLogger(w io.Writer) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(os.Getenv(config.ENV_KEY_LOG_LEVEL)),
	})
	return slog.New(NewTraceHandler(jsonHandler))
}
