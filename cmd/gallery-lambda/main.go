package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gallery/internal/app"
	"gallery/internal/config"
	"gallery/internal/lambdax"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
)

func Run(ctx context.Context) error {

	// Lambda captures stdout into CloudWatch, which adds its own timestamps.
	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:     log.InfoLevel,
		Formatter: log.JSONFormatter,
	})

	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The database lives for the lifetime of the execution environment.
	gallery, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("Gallery Lambda started", "signer", cfg.Storage.Signer, "bucket", cfg.Storage.Bucket)
	lambda.Start(lambdax.New(gallery.Handler()).Handle)
	return nil
}

func main() {
	if err := Run(context.Background()); err != nil {
		slog.Error("Gallery Lambda exited with error", "error", err)
		os.Exit(1)
	}
}
