package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adstash/adstash/internal/queue"
	"github.com/adstash/adstash/internal/telemetry"
)

// process is satisfied by both the asynq worker and the scheduler.
type process interface {
	Start() error
	Stop()
}

func main() {
	mode := flag.String("mode", "worker", "what to run: worker (task handlers) or scheduler (periodic reaping)")
	flag.Parse()

	logger := telemetry.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(logger, *mode); err != nil {
		logger.Error("worker exited", slog.String("mode", *mode), slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, mode string) error {
	var build func(*slog.Logger) (process, error)
	switch mode {
	case "worker":
		build = func(l *slog.Logger) (process, error) { return queue.NewWorker(l) }
	case "scheduler":
		build = func(l *slog.Logger) (process, error) { return queue.NewScheduler(l) }
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	shutdown, err := telemetry.Setup(context.Background(), "adstash-"+mode)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", slog.String("err", err.Error()))
		}
	}()

	p, err := build(logger)
	if err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}
	logger.Info("started", slog.String("mode", mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down", slog.String("mode", mode))
	p.Stop()
	return nil
}
