// Command sweep runs the estimate sweeper once and exits. Meant for external
// schedulers (cron, Kubernetes CronJob) when the in-process scheduler is off.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_pipeline/internal/app"
	"crm_pipeline/internal/config"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/usecase"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crm-sweep: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout carries the JSON result.
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("service", "crm-sweep"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	res, err := application.SweepOnce(ctx)
	if errors.Is(err, usecase.ErrSweepInProgress) {
		log.Info("another sweep holds the lock, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("sweep finished",
		logger.Int("advanced", res.Advanced.Count),
		logger.Int("archived", res.Archived.Count),
		logger.Int("failures", len(res.Failures)),
	)
	return json.NewEncoder(os.Stdout).Encode(res)
}
