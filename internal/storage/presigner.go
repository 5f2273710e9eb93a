// Package storage issues pre-signed URLs against an S3-compatible bucket.
// The object bytes never pass through this service; clients PUT and GET
// directly against the bucket with the URLs returned here.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// MetaPrefix is the header prefix for user-defined object metadata.
	MetaPrefix = "x-amz-meta-"

	// MaxExpiry is the longest validity SigV4 query signing allows.
	MaxExpiry = 7 * 24 * time.Hour
)

var ErrInvalidExpiry = errors.New("storage: expiry must be between 1s and 7 days")

// PutRequest describes a single signed upload.
type PutRequest struct {
	// Key is the object key within the configured bucket.
	Key string

	// ContentType is signed and must be sent unchanged by the client.
	ContentType string

	// ContentLength is signed when positive.
	ContentLength int64

	// Metadata is stored with the object. Keys are given without the
	// x-amz-meta- prefix.
	Metadata map[string]string

	// Expires is how long the URL stays valid.
	Expires time.Duration
}

// Presigner issues time-limited URLs for a single HTTP operation on a single
// object.
type Presigner interface {
	// PresignPut returns a URL authorising one PUT of req.Key.
	PresignPut(ctx context.Context, req *PutRequest) (string, error)

	// PresignGet returns a URL authorising GETs of key until it expires.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Endpoint is a parsed S3 endpoint.
type Endpoint struct {
	Host   string
	Secure bool
}

// URL returns the endpoint as an absolute URL.
func (e Endpoint) URL() string {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	return scheme + "://" + e.Host
}

// ParseEndpoint accepts either a bare host[:port] or an absolute URL. A bare
// host uses secure as its TLS setting; a URL's scheme wins.
func ParseEndpoint(raw string, secure bool) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, errors.New("storage: endpoint must not be empty")
	}

	if !strings.Contains(raw, "://") {
		return Endpoint{Host: strings.TrimSuffix(raw, "/"), Secure: secure}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("storage: parse endpoint %q: %w", raw, err)
	}

	switch u.Scheme {
	case "http":
		return Endpoint{Host: u.Host, Secure: false}, nil
	case "https":
		return Endpoint{Host: u.Host, Secure: true}, nil
	default:
		return Endpoint{}, fmt.Errorf("storage: unsupported endpoint scheme %q", u.Scheme)
	}
}

func checkExpiry(d time.Duration) error {
	if d < time.Second || d > MaxExpiry {
		return ErrInvalidExpiry
	}
	return nil
}
