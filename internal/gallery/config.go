package gallery

import (
	"net/http"
	"time"

	"gallery/internal/auth"
	"gallery/internal/media"
	"gallery/internal/profile"
	"gallery/internal/storage"
)

type Config struct {
	Authenticator auth.AuthEngine
	Profiles      profile.Store
	Signer        storage.Presigner
	Policy        media.Policy

	// AuthRoutes, when set, mounts the /api/auth endpoints on the router.
	AuthRoutes interface{ Register(*http.ServeMux) }

	// Metrics, when set, instruments requests and serves /metrics.
	Metrics MetricsProvider

	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	// Now is the clock used for upload timestamps.
	Now func() time.Time
}

// MetricsProvider is implemented by *metrics.Metrics.
type MetricsProvider interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type ConfigOption func(*Config)

func WithAuthEngine(authenticator auth.AuthEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Authenticator = authenticator
	}
}

func WithProfileStore(profiles profile.Store) ConfigOption {
	return func(cfg *Config) {
		cfg.Profiles = profiles
	}
}

func WithPresigner(signer storage.Presigner) ConfigOption {
	return func(cfg *Config) {
		cfg.Signer = signer
	}
}

func WithPolicy(policy media.Policy) ConfigOption {
	return func(cfg *Config) {
		cfg.Policy = policy
	}
}

func WithAuthRoutes(routes interface{ Register(*http.ServeMux) }) ConfigOption {
	return func(cfg *Config) {
		cfg.AuthRoutes = routes
	}
}

func WithMetrics(m MetricsProvider) ConfigOption {
	return func(cfg *Config) {
		cfg.Metrics = m
	}
}

func WithAllowedOrigins(origins ...string) ConfigOption {
	return func(cfg *Config) {
		cfg.AllowedOrigins = origins
	}
}

func WithClock(now func() time.Time) ConfigOption {
	return func(cfg *Config) {
		cfg.Now = now
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
