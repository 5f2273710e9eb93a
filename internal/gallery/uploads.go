package gallery

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"gallery/internal/auth"
	"gallery/internal/httpx"
	"gallery/internal/storage"

	"github.com/google/uuid"
)

const (
	// UploadURLExpiry is the lifetime of a generic upload URL.
	UploadURLExpiry = time.Hour

	msgMissingUploadFields = "Missing required fields: filename, contentType, fileSize"
	msgFileTooLarge        = "File size exceeds 10MB limit"
	msgImagesOnly          = "Only image files are allowed"

	// uploadedAtFormat matches JavaScript's Date.toISOString.
	uploadedAtFormat = "2006-01-02T15:04:05.000Z"
)

// Object metadata keys, without the x-amz-meta- prefix.
const (
	metaOriginalFilename = "original-filename"
	metaUploadedBy       = "uploaded-by"
	metaUploadedAt       = "uploaded-at"
)

// fileSize is a declared byte count. Any JSON number with no fractional
// part is accepted, so 1000 and 1000.0 decode alike.
type fileSize int64

var errFileSize = errors.New("fileSize must be a whole number")

func (n *fileSize) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return errFileSize
	}
	*n = fileSize(f)
	return nil
}

type uploadURLRequest struct {
	Filename    string   `json:"filename"`
	ContentType string   `json:"contentType"`
	FileSize    fileSize `json:"fileSize"`
}

type uploadURLResponse struct {
	PresignedURL     string `json:"presignedUrl"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"originalFilename"`
	ContentType      string `json:"contentType"`
	FileSize         int64  `json:"fileSize"`
	ExpiresIn        int    `json:"expiresIn"`
}

// validate checks a declared upload against the image policy. The checks run
// in a fixed order so that the first failing rule decides the message.
func (s *Server) validateUpload(req *uploadURLRequest) error {
	if req.Filename == "" || req.ContentType == "" || req.FileSize <= 0 {
		return validationError(msgMissingUploadFields)
	}
	if !s.cfg.Policy.WithinLimit(int64(req.FileSize)) {
		return validationError(msgFileTooLarge)
	}
	if !s.cfg.Policy.Allows(req.ContentType) {
		return validationError(msgImagesOnly)
	}
	return nil
}

// handleUploadURL issues a PUT URL for a fresh, never reused object key.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	var req uploadURLRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return validationError(msgInvalidBody)
	}
	if err := s.validateUpload(&req); err != nil {
		return err
	}

	key := uuid.NewString() + s.cfg.Policy.Extension(req.ContentType)

	presignedURL, err := s.cfg.Signer.PresignPut(r.Context(), &storage.PutRequest{
		Key:           key,
		ContentType:   req.ContentType,
		ContentLength: int64(req.FileSize),
		Metadata: map[string]string{
			metaOriginalFilename: req.Filename,
			metaUploadedBy:       user.ID,
			metaUploadedAt:       s.uploadedAt(),
		},
		Expires: UploadURLExpiry,
	})
	if err != nil {
		return internalError("presign upload", err)
	}

	httpx.WriteJSON(w, http.StatusOK, uploadURLResponse{
		PresignedURL:     presignedURL,
		Filename:         key,
		OriginalFilename: req.Filename,
		ContentType:      req.ContentType,
		FileSize:         int64(req.FileSize),
		ExpiresIn:        int(UploadURLExpiry / time.Second),
	})
	return nil
}

func (s *Server) uploadedAt() string {
	return s.cfg.Now().UTC().Format(uploadedAtFormat)
}
