package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gallery/internal/auth"
	"gallery/internal/profile"

	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, _, db := newTestSessionStore(t)
	mux := http.NewServeMux()
	auth.NewHandler(store, profile.NewSQLiteStore(db), false).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	rq, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	rq.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		rq.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(rq)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignUpSignInFlow(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/api/auth/sign-up/email",
		`{"name":"Ada","email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	require.Equal(t, "Ada", user["name"])
	require.Nil(t, user["image"])
	require.NotContains(t, user, "password")

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie, "session cookie")
	require.True(t, cookie.HttpOnly)
	require.Equal(t, body["token"], cookie.Value)

	resp = postJSON(t, srv.URL+"/api/auth/sign-up/email",
		`{"name":"Ada","email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "User already exists", decodeBody(t, resp)["error"])

	resp = postJSON(t, srv.URL+"/api/auth/sign-in/email",
		`{"email":"ada@example.com","password":"wrong password"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid email or password", decodeBody(t, resp)["error"])

	resp = postJSON(t, srv.URL+"/api/auth/sign-in/email",
		`{"email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decodeBody(t, resp)["token"].(string)

	rq, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/get-session", nil)
	require.NoError(t, err)
	rq.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(rq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Equal(t, "ada@example.com", body["user"].(map[string]any)["email"])
	require.NotContains(t, body["session"], "token")
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/api/auth/sign-up/email",
		`{"name":"Ada","email":"ada@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	resp = postJSON(t, srv.URL+"/api/auth/sign-out", ``, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decodeBody(t, resp)["success"])

	rq, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/get-session", nil)
	require.NoError(t, err)
	rq.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(rq)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Nil(t, body, "session should be gone")

	resp = postJSON(t, srv.URL+"/api/auth/sign-out", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode, "sign-out without a session")
}

func TestSignUpValidation(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"name":`, "Invalid request body"},
		{"empty body", ``, "Invalid request body"},
		{"missing name", `{"email":"a@example.com","password":"correct horse"}`, "Name must be between 1 and 100 characters"},
		{"bad email", `{"name":"A","email":"nope","password":"correct horse"}`, "Invalid email"},
		{"short password", `{"name":"A","email":"a@example.com","password":"short"}`, "Password must be between 8 and 128 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/auth/sign-up/email", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, tt.want, decodeBody(t, resp)["error"])
		})
	}
}

func TestUnknownAuthRoute(t *testing.T) {
	t.Parallel()

	srv := newAuthServer(t)

	for _, path := range []string{"/api/auth/sign-in/social", "/api/auth", "/api/auth/"} {
		resp := postJSON(t, srv.URL+path, `{}`)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)

		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)
	}
}
