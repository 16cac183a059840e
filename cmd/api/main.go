package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_pipeline/internal/app"
	"crm_pipeline/internal/config"
	"crm_pipeline/internal/infrastructure/logger"

	_ "github.com/joho/godotenv/autoload"
)

// @title           CRM Pipeline API
// @version         1.0
// @description     Job lifecycle, audit trail and estimate sweeper of the CRM pipeline, backed by DynamoDB.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crm-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("service", "crm-api"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Error("failed to start", logger.Error(err))
		return err
	}
	defer func() { _ = application.Close() }()

	log.Info("starting",
		logger.String("store", cfg.Store.Driver),
		logger.Bool("sweep_enabled", cfg.Sweep.Enabled),
		logger.Bool("jwt_auth", !cfg.Auth.HeaderMode()),
		logger.Bool("payments_mock", cfg.Payments.Mock),
	)
	if err := application.Run(ctx); err != nil {
		log.Error("stopped with error", logger.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}
