// Package gallery implements the upload and profile API: pre-signed upload
// URLs, the stable per-user profile image and partial profile updates.
package gallery

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gallery/internal/auth"
	"gallery/internal/httpx"
	"gallery/internal/media"
	"gallery/internal/ui"

	"github.com/a-h/templ"
)

// Server serves the gallery API. All collaborators arrive through Config.
type Server struct {
	cfg Config
}

// NewServer validates cfg and returns a new Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Authenticator == nil {
		return nil, errors.New("gallery: Authenticator must not be nil")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("gallery: Profiles must not be nil")
	}
	if cfg.Signer == nil {
		return nil, errors.New("gallery: Signer must not be nil")
	}

	if cfg.Policy.Extensions == nil {
		cfg.Policy = media.DefaultPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Server{cfg: cfg}, nil
}

// apiFunc is a handler for an authenticated route. It writes its own
// success response and returns an error for everything else.
type apiFunc func(w http.ResponseWriter, r *http.Request, user *auth.User) error

// protected resolves the caller's identity before running fn.
func (s *Server) protected(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.cfg.Authenticator.AuthenticateRequest(r.Context(), r)
		if err != nil {
			writeError(w, r, internalError("authenticate request", err))
			return
		}
		if user == nil {
			writeError(w, r, authError())
			return
		}

		if err := fn(w, r, user); err != nil {
			writeError(w, r, err)
		}
	}
}

// Routes lists the API surface, in the order shown on the landing page.
func Routes() []ui.Route {
	return []ui.Route{
		{Method: http.MethodPost, Path: "/api/auth/sign-up/email", Description: "Create an account"},
		{Method: http.MethodPost, Path: "/api/auth/sign-in/email", Description: "Start a session"},
		{Method: http.MethodPost, Path: "/api/auth/sign-out", Description: "End the current session"},
		{Method: http.MethodGet, Path: "/api/auth/get-session", Description: "Current session and user"},
		{Method: http.MethodPost, Path: "/api/uploads/pre-signed-url", Description: "Signed URL for a new image upload"},
		{Method: http.MethodGet, Path: "/api/user/profile", Description: "Read your profile"},
		{Method: http.MethodPost, Path: "/api/user/profile", Description: "Update your name or image"},
		{Method: http.MethodGet, Path: "/api/user/profile/image", Description: "Signed download URL for your profile image"},
		{Method: http.MethodPost, Path: "/api/user/profile/image", Description: "Signed upload URL for your profile image"},
	}
}

// fallback answers requests no other pattern on mux matches with a JSON
// error: 405 when the path is served under another method, 404 otherwise.
func fallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			if method == r.Method {
				continue
			}
			alt := r.Clone(r.Context())
			alt.Method = method
			if _, pattern := mux.Handler(alt); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			httpx.WriteError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
			return
		}
		httpx.WriteError(w, http.StatusNotFound, msgNotFound)
	})
}

// Handler returns an http.Handler implementing the gallery API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", templ.Handler(ui.IndexPage("Gallery API", Routes())))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics.Handler())
	}

	if s.cfg.AuthRoutes != nil {
		s.cfg.AuthRoutes.Register(mux)
	}

	mux.HandleFunc("POST /api/uploads/pre-signed-url", s.protected(s.handleUploadURL))

	mux.HandleFunc("GET /api/user/profile", s.protected(s.handleGetProfile))
	mux.HandleFunc("POST /api/user/profile", s.protected(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/user/profile/image", s.protected(s.handleGetProfileImage))
	mux.HandleFunc("POST /api/user/profile/image", s.protected(s.handleProfileImageURL))

	mux.Handle("/", fallback(mux))

	var h http.Handler = Recoverer(SlashFix(mux))
	h = LogRequest(h)
	if s.cfg.Metrics != nil {
		h = s.cfg.Metrics.Middleware(h)
	}
	return newCORS(s.cfg.AllowedOrigins).Handler(h)
}
