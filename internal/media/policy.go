// Package media describes which uploads the gallery accepts and how their
// object keys are named.
package media

import (
	"strings"
)

const (
	// MaxUploadSize is the largest payload a client may declare for an upload.
	MaxUploadSize = int64(10 * 1024 * 1024)

	// DefaultExtension is used for image types missing from the table.
	DefaultExtension = ".jpg"

	imagePrefix = "image/"
)

// Policy is the finite set of rules applied to a declared upload before a
// URL is signed for it.
type Policy struct {
	// MaxSize is the inclusive upper bound on the declared file size.
	MaxSize int64

	// Extensions maps a lowercase MIME type to the extension appended to
	// generated object keys.
	Extensions map[string]string

	// Fallback is the extension for accepted types absent from Extensions.
	Fallback string
}

// DefaultPolicy returns the image policy used by the gallery.
func DefaultPolicy() Policy {
	return Policy{
		MaxSize: MaxUploadSize,
		Extensions: map[string]string{
			"image/jpeg":    ".jpg",
			"image/jpg":     ".jpg",
			"image/png":     ".png",
			"image/gif":     ".gif",
			"image/webp":    ".webp",
			"image/svg+xml": ".svg",
			"image/bmp":     ".bmp",
			"image/tiff":    ".tiff",
		},
		Fallback: DefaultExtension,
	}
}

// Allows reports whether contentType names an image.
func (p Policy) Allows(contentType string) bool {
	return strings.HasPrefix(contentType, imagePrefix)
}

// WithinLimit reports whether a declared size fits the policy.
func (p Policy) WithinLimit(size int64) bool {
	return size <= p.MaxSize
}

// Extension returns the key extension for contentType.
func (p Policy) Extension(contentType string) string {
	if ext, ok := p.Extensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	return p.Fallback
}
