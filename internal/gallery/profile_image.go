package gallery

import (
	"net/http"
	"time"

	"gallery/internal/auth"
	"gallery/internal/httpx"
	"gallery/internal/storage"

	"github.com/google/uuid"
)

const (
	// ProfileImageUploadExpiry is the lifetime of a profile image PUT URL.
	ProfileImageUploadExpiry = 24 * time.Hour

	// ProfileImageDownloadExpiry is the lifetime of a profile image GET URL.
	ProfileImageDownloadExpiry = time.Hour

	msgMissingImageFields = "Missing required fields: contentType, fileSize"
)

type profileImageUploadRequest struct {
	ContentType      string   `json:"contentType"`
	FileSize         fileSize `json:"fileSize"`
	OriginalFilename string   `json:"originalFilename"`
}

type profileImageUploadResponse struct {
	PresignedURL     string `json:"presignedUrl"`
	Key              string `json:"key"`
	ContentType      string `json:"contentType"`
	FileSize         int64  `json:"fileSize"`
	ExpiresIn        int    `json:"expiresIn"`
	UploadedBy       string `json:"uploadedBy"`
	UploadedAt       string `json:"uploadedAt"`
	OriginalFilename string `json:"originalFilename"`
}

type profileImageResponse struct {
	HasImage    bool   `json:"hasImage"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
	Message     string `json:"message,omitempty"`
}

// handleGetProfileImage returns a download URL for the user's image key.
func (s *Server) handleGetProfileImage(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	ctx := r.Context()

	u, err := s.cfg.Profiles.Get(ctx, user.ID)
	if err != nil {
		return profileError("get profile", err)
	}

	if !u.HasImage() {
		httpx.WriteJSON(w, http.StatusOK, profileImageResponse{HasImage: false, Message: msgNoProfileImage})
		return nil
	}

	key := *u.Image
	downloadURL, err := s.cfg.Signer.PresignGet(ctx, key, ProfileImageDownloadExpiry)
	if err != nil {
		return internalError("presign profile image download", err)
	}

	httpx.WriteJSON(w, http.StatusOK, profileImageResponse{
		HasImage:    true,
		DownloadURL: downloadURL,
		Filename:    key,
		ExpiresIn:   int(ProfileImageDownloadExpiry / time.Second),
	})
	return nil
}

// handleProfileImageURL issues an upload URL for the user's stable image
// key. The key is persisted before signing so that every later upload and
// download resolves to the same object.
func (s *Server) handleProfileImageURL(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	var req profileImageUploadRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return validationError(msgInvalidBody)
	}
	if req.ContentType == "" || req.FileSize <= 0 {
		return validationError(msgMissingImageFields)
	}

	ctx := r.Context()

	u, err := s.cfg.Profiles.Get(ctx, user.ID)
	if err != nil {
		return profileError("get profile", err)
	}

	var key string
	if u.HasImage() {
		key = *u.Image
	} else {
		// A concurrent first upload may win; AssignImage then returns its key.
		key, err = s.cfg.Profiles.AssignImage(ctx, user.ID, uuid.NewString())
		if err != nil {
			return profileError("assign profile image key", err)
		}
	}

	originalFilename := req.OriginalFilename
	if originalFilename == "" {
		originalFilename = key
	}
	uploadedAt := s.uploadedAt()

	presignedURL, err := s.cfg.Signer.PresignPut(ctx, &storage.PutRequest{
		Key:         key,
		ContentType: req.ContentType,
		Metadata: map[string]string{
			metaOriginalFilename: originalFilename,
			metaUploadedBy:       user.ID,
			metaUploadedAt:       uploadedAt,
		},
		Expires: ProfileImageUploadExpiry,
	})
	if err != nil {
		return internalError("presign profile image upload", err)
	}

	httpx.WriteJSON(w, http.StatusOK, profileImageUploadResponse{
		PresignedURL:     presignedURL,
		Key:              key,
		ContentType:      req.ContentType,
		FileSize:         int64(req.FileSize),
		ExpiresIn:        int(ProfileImageUploadExpiry / time.Second),
		UploadedBy:       user.ID,
		UploadedAt:       uploadedAt,
		OriginalFilename: originalFilename,
	})
	return nil
}
