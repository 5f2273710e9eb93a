package gallery_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"gallery/internal/profile"

	"github.com/stretchr/testify/require"
)

func TestGetProfileImageUnset(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/user/profile/image", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, map[string]any{"hasImage": false, "message": "No profile image set"}, body)
	require.Zero(t, env.signer.calls())
}

func TestProfileImageKeyIsStable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	status, first := env.do(t, http.MethodPost, "/api/user/profile/image",
		`{"contentType":"image/png","fileSize":2048,"originalFilename":"me.png"}`)
	require.Equal(t, http.StatusOK, status, "body: %v", first)

	key := first["key"].(string)
	require.Regexp(t, uuidKey.String()+`$`, key, "profile image keys carry no extension")
	require.Equal(t, "image/png", first["contentType"])
	require.EqualValues(t, 2048, first["fileSize"])
	require.EqualValues(t, 86400, first["expiresIn"])
	require.Equal(t, env.userID, first["uploadedBy"])
	require.Equal(t, "me.png", first["originalFilename"])
	require.NotEmpty(t, first["uploadedAt"])

	// The key is persisted before the URL is handed out.
	u, err := env.profiles.Get(t.Context(), env.userID)
	require.NoError(t, err)
	require.Equal(t, key, *u.Image)

	for range 3 {
		status, again := env.do(t, http.MethodPost, "/api/user/profile/image",
			`{"contentType":"image/jpeg","fileSize":4096}`)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, key, again["key"])
		require.Equal(t, key, again["originalFilename"], "original filename defaults to the key")
	}

	puts := env.signer.putRequests()
	require.Len(t, puts, 4)
	for _, put := range puts {
		require.Equal(t, key, put.Key)
		require.Equal(t, 24*time.Hour, put.Expires)
		require.Zero(t, put.ContentLength, "profile image URLs do not pin the length")
		require.Equal(t, env.userID, put.Metadata["uploaded-by"])
	}

	status, body := env.do(t, http.MethodGet, "/api/user/profile/image", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["hasImage"])
	require.Equal(t, key, body["filename"])
	require.EqualValues(t, 3600, body["expiresIn"])
	require.Contains(t, body["downloadUrl"], key)
	require.Equal(t, []string{key}, env.signer.getKeys())
}

func TestProfileImageReusesPresetKey(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	preset := "preset-key"
	_, err := env.profiles.Update(t.Context(), env.userID, profile.Update{Name: "Ada", SetImage: true, Image: &preset})
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/api/user/profile/image", `{"contentType":"image/png","fileSize":1}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, preset, body["key"])
}

func TestProfileImageConcurrentFirstUpload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	const callers = 8
	keys := make([]string, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			rq, err := http.NewRequestWithContext(t.Context(), http.MethodPost, env.srv.URL+"/api/user/profile/image",
				strings.NewReader(`{"contentType":"image/png","fileSize":1}`))
			if err != nil {
				return
			}
			rq.Header.Set("Authorization", "Bearer "+env.token)

			resp, err := http.DefaultClient.Do(rq)
			if err != nil {
				return
			}
			defer resp.Body.Close()

			var body struct {
				Key string `json:"key"`
			}
			if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&body) == nil {
				keys[i] = body.Key
			}
		}()
	}
	wg.Wait()

	u, err := env.profiles.Get(t.Context(), env.userID)
	require.NoError(t, err)
	require.NotNil(t, u.Image)

	succeeded := 0
	for _, k := range keys {
		if k != "" {
			succeeded++
			require.Equal(t, *u.Image, k, "every caller must be handed the persisted key")
		}
	}
	require.Positive(t, succeeded)
}

func TestProfileImageValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, body := range []string{
		`{"fileSize":1}`,
		`{"contentType":"image/png"}`,
		`{"contentType":"","fileSize":1}`,
	} {
		status, resp := env.do(t, http.MethodPost, "/api/user/profile/image", body)
		require.Equal(t, http.StatusBadRequest, status, body)
		require.Equal(t, "Missing required fields: contentType, fileSize", resp["error"])
	}

	status, resp := env.do(t, http.MethodPost, "/api/user/profile/image", `not json`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid request body", resp["error"])

	require.Zero(t, env.signer.calls())

	u, err := env.profiles.Get(t.Context(), env.userID)
	require.NoError(t, err)
	require.Nil(t, u.Image, "rejected requests must not assign a key")
}

func TestProfileImageSignerFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.signer.fail(errors.New("credentials expired"))

	status, body := env.do(t, http.MethodPost, "/api/user/profile/image", `{"contentType":"image/png","fileSize":1}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Internal server error", body["error"])

	status, body = env.do(t, http.MethodGet, "/api/user/profile/image", "")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Internal server error", body["error"])
}
