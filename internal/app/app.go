// Package app wires configuration into a ready to serve gallery handler. It
// is shared by the HTTP server and the Lambda entry point.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"gallery/internal/auth"
	"gallery/internal/config"
	"gallery/internal/database"
	"gallery/internal/gallery"
	"gallery/internal/media"
	"gallery/internal/metrics"
	"gallery/internal/profile"
	"gallery/internal/storage"
)

// App owns the resources behind the gallery handler.
type App struct {
	db      *sql.DB
	handler http.Handler
}

// New opens the database, builds the signer and auth engines and returns
// an App serving the full API.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	dbPath, err := filepath.Abs(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	db, err := database.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a, err := build(ctx, cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg config.Config, db *sql.DB) (*App, error) {
	signer, err := NewPresigner(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	sessions := auth.NewSessionStore(db, auth.SessionConfig{
		ExpiresIn: cfg.Session.ExpiresIn,
		UpdateAge: cfg.Session.UpdateAge,
	})
	profiles := profile.NewSQLiteStore(db)

	engines := []auth.AuthEngine{auth.NewSessionAuthEngine(sessions)}
	oidcCfg := auth.OIDCConfig{Issuer: cfg.OIDC.Issuer, ClientID: cfg.OIDC.ClientID, JWKSURL: cfg.OIDC.JWKSURL}
	if oidcCfg.Enabled() {
		engine, err := auth.NewOIDCAuthEngine(ctx, oidcCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC engine: %w", err)
		}
		engines = append(engines, engine)
		slog.Info("OIDC bearer authentication enabled", "issuer", oidcCfg.Issuer, "jwks_url", oidcCfg.JWKSURL)
	}

	server, err := gallery.NewServer(gallery.NewConfig(
		gallery.WithAuthEngine(auth.NewCompoundAuthEngine(engines...)),
		gallery.WithProfileStore(profiles),
		gallery.WithPresigner(m.InstrumentPresigner(signer)),
		gallery.WithPolicy(media.DefaultPolicy()),
		gallery.WithAuthRoutes(auth.NewHandler(sessions, profiles, cfg.SecureCookies)),
		gallery.WithMetrics(m),
		gallery.WithAllowedOrigins(cfg.AllowedOrigins...),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery server: %w", err)
	}

	return &App{db: db, handler: server.Handler()}, nil
}

// Handler returns the root handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

// NewPresigner builds the signer selected by cfg.Signer.
func NewPresigner(ctx context.Context, cfg config.StorageConfig) (storage.Presigner, error) {
	var endpoint storage.Endpoint
	if cfg.Endpoint != "" {
		var err error
		endpoint, err = storage.ParseEndpoint(cfg.Endpoint, cfg.UseSSL)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Signer {
	case config.SignerAWS:
		return storage.NewAWSPresigner(storage.AWSOptions{
			Endpoint:        endpoint,
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})

	case config.SignerMinio:
		signer, err := storage.NewMinioPresigner(storage.MinioOptions{
			Endpoint:        endpoint,
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}

		if cfg.CreateBucket {
			if err := signer.EnsureBucket(ctx); err != nil {
				return nil, err
			}
			slog.Info("Bucket ready", "bucket", cfg.Bucket, "endpoint", endpoint.URL())
		}
		return signer, nil

	default:
		return nil, fmt.Errorf("unknown storage signer %q", cfg.Signer)
	}
}
