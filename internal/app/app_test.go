package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gallery/internal/app"
	"gallery/internal/config"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "gallery.sqlite")
	cfg.Storage.Endpoint = "http://127.0.0.1:9000"
	return cfg
}

func TestAppServesFullAPI(t *testing.T) {
	t.Parallel()

	a, err := app.New(t.Context(), testConfig(t))
	require.NoError(t, err, "app.New error")
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	post := func(path, body, token string) (*http.Response, map[string]any) {
		rq, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		rq.Header.Set("Content-Type", "application/json")
		if token != "" {
			rq.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(rq)
		require.NoError(t, err)
		defer resp.Body.Close()

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp, out
	}

	resp, body := post("/api/auth/sign-up/email", `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	resp, body = post("/api/uploads/pre-signed-url", `{"filename":"a.png","contentType":"image/png","fileSize":1000}`, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(body["presignedUrl"].(string))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", u.Host)
	require.Equal(t, "/gallery/"+body["filename"].(string), u.Path)
	require.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestNewPresignerSelectsBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t).Storage

	for _, signer := range []string{config.SignerMinio, config.SignerAWS} {
		cfg.Signer = signer
		p, err := app.NewPresigner(t.Context(), cfg)
		require.NoError(t, err, signer)

		raw, err := p.PresignGet(t.Context(), "key", time.Hour)
		require.NoError(t, err, signer)
		require.Contains(t, raw, "/gallery/key", signer)
	}

	cfg.Signer = "gcs"
	_, err := app.NewPresigner(t.Context(), cfg)
	require.Error(t, err)
}
