package lambdax_test

import (
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"gallery/internal/lambdax"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"
)

func TestAdapterRoundTrip(t *testing.T) {
	t.Parallel()

	var got *http.Request
	var gotBody string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		http.SetCookie(w, &http.Cookie{Name: "a", Value: "1"})
		http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	event := events.APIGatewayV2HTTPRequest{
		RawPath:        "/api/user/profile",
		RawQueryString: "x=1&y=2",
		Headers: map[string]string{
			"content-type":  "application/json",
			"authorization": "Bearer abc",
			"host":          "api.example",
		},
		Cookies:         []string{"gallery.session_token=tok", "theme=dark"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"name":"X"}`)),
		IsBase64Encoded: true,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   http.MethodPost,
				SourceIP: "203.0.113.7",
			},
		},
	}

	resp, err := lambdax.New(h).Handle(t.Context(), event)
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/api/user/profile", got.URL.Path)
	require.Equal(t, "1", got.URL.Query().Get("x"))
	require.Equal(t, "2", got.URL.Query().Get("y"))
	require.Equal(t, "Bearer abc", got.Header.Get("Authorization"))
	require.Equal(t, "api.example", got.Host)
	require.Equal(t, "203.0.113.7", got.RemoteAddr)
	require.Equal(t, `{"name":"X"}`, gotBody)

	c, err := got.Cookie("gallery.session_token")
	require.NoError(t, err)
	require.Equal(t, "tok", c.Value)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.Equal(t, `{"ok":true}`, resp.Body)
	require.False(t, resp.IsBase64Encoded)
	require.Equal(t, []string{"a=1", "b=2"}, resp.Cookies)
}

func TestAdapterBinaryResponse(t *testing.T) {
	t.Parallel()

	payload := []byte{0x89, 'P', 'N', 'G'}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	})

	resp, err := lambdax.New(h).Handle(t.Context(), events.APIGatewayV2HTTPRequest{RawPath: "/"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, resp.IsBase64Encoded)

	decoded, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func TestNewRequestRejectsBadBase64(t *testing.T) {
	t.Parallel()

	_, err := lambdax.NewRequest(t.Context(), events.APIGatewayV2HTTPRequest{
		RawPath:         "/",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	require.Error(t, err)
}
