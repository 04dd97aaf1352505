// Command demo runs the restaurant example against the configured engine and runtime.
//
// It opens a few restaurants concurrently, places and prepares orders, passivates the menus and
// checks that later orders are rejected. In event-sourced mode the read models are caught up and
// used for the check, in state-stored mode the stored states are.
//
// Configuration is read from RESTAURANT_* environment variables, see config.Config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/shell/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	start := time.Now()
	logger.Info("starting demo", "setup", describe(cfg), "restaurants", cfg.Restaurants)

	t := newTelemetry(cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := t.shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	s, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer s.close()

	a, err := newApp(cfg, s, t.options)
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}

	expected, err := runScenario(ctx, a, cfg.Restaurants, logger)
	if err != nil {
		return err
	}

	projected, err := a.catchUp(ctx)
	if err != nil {
		return fmt.Errorf("catch up read models: %w", err)
	}

	if projected > 0 {
		logger.Info("read models caught up", "events", projected)
	}

	if err = verify(ctx, a, expected, logger); err != nil {
		return err
	}

	t.summarize(ctx, logger)
	logger.Info("demo finished", "duration_ms", time.Since(start).Milliseconds())

	return nil
}
