package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery/internal/app"
	"gallery/internal/config"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context) error {

	configPath := flag.String("config", "", "path to a YAML config file (defaults to $GALLERY_CONFIG)")
	listen := flag.String("listen", "", "HTTP listen address, overrides the config file")
	httpsListen := flag.String("https-listen", ":8443", "HTTPS listen address")
	certFile := flag.String("tls-cert", "", "TLS certificate file; HTTPS is disabled when empty")
	keyFile := flag.String("tls-key", "", "TLS private key file")

	flag.Parse()

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.DebugLevel,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})

	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *listen != "" {
		cfg.Address = *listen
	}

	gallery, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	defer gallery.Close()

	router := gallery.Handler()

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	httpsServer := &http.Server{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Addr:              *httpsListen,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		return httpsServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		if *certFile == "" || *keyFile == "" {
			slog.Debug("Skipping HTTPS service because no certificate was provided")
			return nil
		}

		slog.Info("Starting Gallery HTTPS server", "address", *httpsListen)
		err := httpsServer.ListenAndServeTLS(*certFile, *keyFile)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	eg.Go(func() error {
		slog.Info("Starting Gallery HTTP server", "address", cfg.Address)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	slog.Info("Gallery Started", "signer", cfg.Storage.Signer, "bucket", cfg.Storage.Bucket)
	return eg.Wait()

}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("Gallery exited with error", "error", err)
		os.Exit(1)
	}
}
