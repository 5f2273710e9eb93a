package gallery

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"gallery/internal/auth"
	"gallery/internal/httpx"
	"gallery/internal/profile"
)

const (
	MaxNameLength = 100

	msgNameRequired = "Name is required"
	msgNameLength   = "Name must be between 1 and 100 characters"
)

// optionalString distinguishes a key that was omitted from one sent as null.
type optionalString struct {
	// Set is true when the key appeared in the body.
	Set bool

	// Valid is false when the key was sent as null.
	Valid bool
	Value string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Valid = false
		o.Value = ""
		return nil
	}

	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Ptr returns the value, or nil for null and the empty string.
func (o optionalString) Ptr() *string {
	if !o.Valid || o.Value == "" {
		return nil
	}
	v := o.Value
	return &v
}

type updateProfileRequest struct {
	Name  string         `json:"name"`
	Image optionalString `json:"image"`
}

type updateProfileResponse struct {
	Success bool          `json:"success"`
	User    *profile.User `json:"user"`
}

func validateName(name string) error {
	if name == "" {
		return validationError(msgNameRequired)
	}
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		return validationError(msgNameLength)
	}
	return nil
}

// profileError maps store failures shared by the profile routes.
func profileError(op string, err error) error {
	if errors.Is(err, profile.ErrNotFound) {
		return notFoundError(msgUserNotFound)
	}
	return internalError(op, err)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	u, err := s.cfg.Profiles.Get(r.Context(), user.ID)
	if err != nil {
		return profileError("get profile", err)
	}

	httpx.WriteJSON(w, http.StatusOK, u)
	return nil
}

// handleUpdateProfile writes the name and, only when the body carries the
// image key, the image.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user *auth.User) error {
	var req updateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return validationError(msgInvalidBody)
	}
	if err := validateName(req.Name); err != nil {
		return err
	}

	update := profile.Update{Name: req.Name}
	if req.Image.Set {
		update.SetImage = true
		update.Image = req.Image.Ptr()
	}

	u, err := s.cfg.Profiles.Update(r.Context(), user.ID, update)
	if err != nil {
		return profileError("update profile", err)
	}

	httpx.WriteJSON(w, http.StatusOK, updateProfileResponse{Success: true, User: u})
	return nil
}
