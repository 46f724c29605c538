package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Logger adapts slog to asynq.Logger.
type Logger struct {
	l *slog.Logger
}

func NewLogger(l *slog.Logger) *Logger {
	return &Logger{l: l.With(slog.String("component", "asynq"))}
}

func (a *Logger) log(level slog.Level, args ...any) {
	a.l.Log(context.Background(), level, fmt.Sprint(args...))
}

func (a *Logger) Debug(args ...any) { a.log(slog.LevelDebug, args...) }
func (a *Logger) Info(args ...any)  { a.log(slog.LevelInfo, args...) }
func (a *Logger) Warn(args ...any)  { a.log(slog.LevelWarn, args...) }
func (a *Logger) Error(args ...any) { a.log(slog.LevelError, args...) }

func (a *Logger) Fatal(args ...any) {
	a.log(slog.LevelError, args...)
	os.Exit(1)
}
