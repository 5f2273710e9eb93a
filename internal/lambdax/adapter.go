// Package lambdax serves an http.Handler behind an API Gateway HTTP API
// (payload format 2.0).
package lambdax

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Adapter converts API Gateway events to requests for an http.Handler.
type Adapter struct {
	handler http.Handler
}

// New returns an Adapter for h.
func New(h http.Handler) *Adapter {
	return &Adapter{handler: h}
}

// Handle is the Lambda entry point.
func (a *Adapter) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	rq, err := NewRequest(ctx, event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	w := newResponseWriter()
	a.handler.ServeHTTP(w, rq)
	return w.response(), nil
}

// NewRequest builds the http.Request described by event.
func NewRequest(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}

	path := event.RawPath
	if path == "" {
		path = event.RequestContext.HTTP.Path
	}
	if path == "" {
		path = "/"
	}

	u := &url.URL{Path: path, RawQuery: event.RawQueryString}
	if event.RawQueryString == "" && len(event.QueryStringParameters) > 0 {
		q := url.Values{}
		for k, v := range event.QueryStringParameters {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("lambdax: decode body: %w", err)
		}
		body = decoded
	}

	rq, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lambdax: build request: %w", err)
	}

	for k, v := range event.Headers {
		rq.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		rq.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}

	rq.Host = rq.Header.Get("Host")
	if rq.Host == "" {
		rq.Host = event.RequestContext.DomainName
	}
	rq.RemoteAddr = event.RequestContext.HTTP.SourceIP
	rq.RequestURI = u.RequestURI()
	rq.ContentLength = int64(len(body))

	return rq, nil
}

// responseWriter buffers a whole response for conversion to an event.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *responseWriter) response() events.APIGatewayV2HTTPResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	resp := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    make(map[string]string, len(w.header)),
	}

	for k, v := range w.header {
		if k == "Set-Cookie" {
			resp.Cookies = append(resp.Cookies, v...)
			continue
		}
		resp.Headers[k] = strings.Join(v, ",")
	}

	if isText(w.header.Get("Content-Type")) {
		resp.Body = w.body.String()
	} else if w.body.Len() > 0 {
		resp.Body = base64.StdEncoding.EncodeToString(w.body.Bytes())
		resp.IsBase64Encoded = true
	}

	return resp
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mt, "text/"),
		mt == "application/json",
		mt == "application/xml",
		mt == "application/javascript",
		strings.HasSuffix(mt, "+json"),
		strings.HasSuffix(mt, "+xml"):
		return true
	}
	return false
}
