package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"gallery/internal/httpx"
	"gallery/internal/profile"
)

const (
	BasePath = "/api/auth"

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// Handler serves the email and password endpoints.
type Handler struct {
	sessions      *SessionStore
	profiles      profile.Store
	secureCookies bool
}

// NewHandler creates a Handler. secureCookies marks the session cookie
// Secure, which browsers require for cross-site credentials over HTTPS.
func NewHandler(sessions *SessionStore, profiles profile.Store, secureCookies bool) *Handler {
	return &Handler{sessions: sessions, profiles: profiles, secureCookies: secureCookies}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+BasePath+"/sign-up/email", h.handleSignUp)
	mux.HandleFunc("POST "+BasePath+"/sign-in/email", h.handleSignIn)
	mux.HandleFunc("POST "+BasePath+"/sign-out", h.handleSignOut)
	mux.HandleFunc("GET "+BasePath+"/get-session", h.handleGetSession)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "Not found")
	}
	// The exact patterns stop ServeMux redirecting the bare base path, which
	// loops once a trailing slash is stripped upstream.
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.HandleFunc(method+" "+BasePath, notFound)
		mux.HandleFunc(method+" "+BasePath+"/", notFound)
	}
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string        `json:"token"`
	User  *profile.User `json:"user"`
}

type sessionResponse struct {
	Session *Session      `json:"session"`
	User    *profile.User `json:"user"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || utf8.RuneCountInString(req.Name) > 100 {
		httpx.WriteError(w, http.StatusBadRequest, "Name must be between 1 and 100 characters")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid email")
		return
	}
	if n := utf8.RuneCountInString(req.Password); n < MinPasswordLength || n > MaxPasswordLength {
		httpx.WriteError(w, http.StatusBadRequest, "Password must be between 8 and 128 characters")
		return
	}

	ctx := r.Context()
	user, err := h.sessions.CreateUser(ctx, req.Name, req.Email, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "User already exists")
		return
	}
	if err != nil {
		slog.Error("Failed to create user", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	userID, err := h.sessions.VerifyPassword(ctx, req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("Failed to verify password", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.profiles.Get(ctx, userID)
	if err != nil {
		slog.Error("Failed to load user", "user_id", userID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *profile.User) {
	sess, err := h.sessions.CreateSession(r.Context(), user.ID, clientIP(r), r.UserAgent())
	if err != nil {
		slog.Error("Failed to create session", "user_id", user.ID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, h.sessionCookie(sess.Token, sess.ExpiresAt))
	httpx.WriteJSON(w, http.StatusOK, authResponse{Token: sess.Token, User: user})
}

// handleSignOut always succeeds; signing out without a session is a no-op.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.sessions.DeleteSession(r.Context(), token); err != nil {
			slog.Error("Failed to delete session", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	http.SetCookie(w, h.sessionCookie("", time.Unix(0, 0)))
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Lookup(ctx, sessionToken(r))
	if errors.Is(err, ErrSessionNotFound) {
		httpx.WriteJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		slog.Error("Failed to look up session", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.profiles.Get(ctx, sess.UserID)
	if errors.Is(err, profile.ErrNotFound) {
		httpx.WriteJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		slog.Error("Failed to load user", "user_id", sess.UserID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Session: sess, User: user})
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
