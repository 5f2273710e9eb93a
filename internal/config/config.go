// Package config loads runtime configuration for the gallery binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SignerMinio = "minio"
	SignerAWS   = "aws"
)

// Config holds runtime configuration.
//
// YAML example:
//
//	address: ":8080"
//	databasePath: "./data/gallery.sqlite"
//	allowedOrigins: ["https://app.example.com"]
//	secureCookies: true
//	storage:
//	  signer: "minio"          # "minio" or "aws"
//	  endpoint: "https://<account>.r2.cloudflarestorage.com"
//	  bucket: "gallery"
//	  region: "auto"
//	  accessKeyID: "..."
//	  secretAccessKey: "..."
//	session:
//	  expiresIn: 168h
//	  updateAge: 24h
//	oidc:
//	  issuer: "https://issuer.example.com"
//	  clientID: "gallery"
//
// Environment variables override the file; see applyEnvOverrides.
type Config struct {
	Address        string        `yaml:"address"`
	DatabasePath   string        `yaml:"databasePath"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	SecureCookies  bool          `yaml:"secureCookies"`
	Storage        StorageConfig `yaml:"storage"`
	Session        SessionConfig `yaml:"session"`
	OIDC           OIDCConfig    `yaml:"oidc"`
}

// StorageConfig selects and configures the request signer.
type StorageConfig struct {
	Signer          string `yaml:"signer"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`

	// UseSSL applies to endpoints given without a scheme.
	UseSSL bool `yaml:"useSSL"`

	// CreateBucket creates the bucket at startup when it is missing. Only
	// the minio signer supports it.
	CreateBucket bool `yaml:"createBucket"`
}

// SessionConfig controls login session lifetime.
type SessionConfig struct {
	ExpiresIn time.Duration `yaml:"expiresIn"`
	UpdateAge time.Duration `yaml:"updateAge"`
}

// OIDCConfig enables the bearer JWT engine when Issuer or JWKSURL is set.
type OIDCConfig struct {
	Issuer   string `yaml:"issuer,omitempty"`
	ClientID string `yaml:"clientID,omitempty"`
	JWKSURL  string `yaml:"jwksURL,omitempty"`
}

// Default returns a Config with local development defaults, pointing at a
// MinIO server on localhost.
func Default() Config {
	return Config{
		Address:      ":8080",
		DatabasePath: "./data/gallery.sqlite",
		Storage: StorageConfig{
			Signer:          SignerMinio,
			Endpoint:        "localhost:9000",
			Bucket:          "gallery",
			Region:          "auto",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
		},
		Session: SessionConfig{
			ExpiresIn: 7 * 24 * time.Hour,
			UpdateAge: 24 * time.Hour,
		},
	}
}

// Load reads configuration from path. If path is empty, GALLERY_CONFIG is
// consulted; a missing file yields Default(). Environment overrides are
// applied last.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("GALLERY_CONFIG")
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg = applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("config: address must not be empty")
	}
	if c.DatabasePath == "" {
		return errors.New("config: databasePath must not be empty")
	}
	switch c.Storage.Signer {
	case SignerMinio, SignerAWS:
	default:
		return fmt.Errorf("config: unknown storage signer %q", c.Storage.Signer)
	}
	if c.Storage.Bucket == "" {
		return errors.New("config: storage bucket is required")
	}
	// The AWS signer falls back to the regional AWS endpoint.
	if c.Storage.Signer == SignerMinio && c.Storage.Endpoint == "" {
		return errors.New("config: storage endpoint is required for the minio signer")
	}
	if c.Session.ExpiresIn <= 0 || c.Session.UpdateAge <= 0 {
		return errors.New("config: session durations must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("GALLERY_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("GALLERY_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("GALLERY_ALLOWED_ORIGINS"); v != "" {
		// Comma-separated list
		cfg.AllowedOrigins = splitAndTrim(v)
	}
	if v, ok := boolEnv("GALLERY_SECURE_COOKIES"); ok {
		cfg.SecureCookies = v
	}

	if v := os.Getenv("S3_SIGNER"); v != "" {
		signer := strings.ToLower(strings.TrimSpace(v))
		switch signer {
		case SignerMinio, SignerAWS:
			cfg.Storage.Signer = signer
		default:
			// ignore invalid value; keep existing
		}
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Storage.Region = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKeyID = v
	}
	if v := os.Getenv("S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretAccessKey = v
	}
	if v, ok := boolEnv("S3_USE_SSL"); ok {
		cfg.Storage.UseSSL = v
	}
	if v, ok := boolEnv("S3_CREATE_BUCKET"); ok {
		cfg.Storage.CreateBucket = v
	}

	if v := os.Getenv("OIDC_ISSUER"); v != "" {
		cfg.OIDC.Issuer = strings.TrimSpace(v)
	}
	if v := os.Getenv("OIDC_CLIENT_ID"); v != "" {
		cfg.OIDC.ClientID = strings.TrimSpace(v)
	}
	if v := os.Getenv("OIDC_JWKS_URL"); v != "" {
		cfg.OIDC.JWKSURL = strings.TrimSpace(v)
	}
	return cfg
}

// boolEnv parses a boolean environment variable. ok is false when the
// variable is unset or not a recognised value.
func boolEnv(name string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
