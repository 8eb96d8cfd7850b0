// Command gateway serves the boats and users REST API and its OpenAPI docs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/marina/internal/app/runtime"
	"github.com/R3E-Network/marina/internal/config"
	"github.com/R3E-Network/marina/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewDefault("gateway").WithError(err).Fatal("load config")
	}
	log := logging.New("gateway", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		log.WithError(runErr).Error("gateway stopped")
	} else {
		log.Info("shutdown signal received")
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
	log.Info("gateway stopped cleanly")
}
