package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gallery/internal/metrics"
	"gallery/internal/storage"

	"github.com/stretchr/testify/require"
)

type stubPresigner struct {
	err error
}

func (s stubPresigner) PresignPut(ctx context.Context, req *storage.PutRequest) (string, error) {
	return "https://bucket.example/put", s.err
}

func (s stubPresigner) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://bucket.example/get", s.err
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddlewareCountsRequests(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/", nil))
	}

	out := scrape(t, m)
	require.Contains(t, out, `gallery_http_requests_total{code="418",method="POST"} 3`)
	require.Contains(t, out, `gallery_http_inflight_requests 0`)
	require.Contains(t, out, `gallery_http_request_duration_seconds_count{code="418",method="POST"} 3`)
}

func TestInstrumentPresigner(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	ok := m.InstrumentPresigner(stubPresigner{})
	failing := m.InstrumentPresigner(stubPresigner{err: errors.New("boom")})

	u, err := ok.PresignPut(t.Context(), &storage.PutRequest{Key: "k"})
	require.NoError(t, err)
	require.Equal(t, "https://bucket.example/put", u)

	_, err = ok.PresignGet(t.Context(), "k", time.Hour)
	require.NoError(t, err)

	_, err = failing.PresignGet(t.Context(), "k", time.Hour)
	require.Error(t, err)

	out := scrape(t, m)
	require.Contains(t, out, `gallery_storage_presigned_urls_total{method="PUT",result="ok"} 1`)
	require.Contains(t, out, `gallery_storage_presigned_urls_total{method="GET",result="ok"} 1`)
	require.Contains(t, out, `gallery_storage_presigned_urls_total{method="GET",result="error"} 1`)
}
