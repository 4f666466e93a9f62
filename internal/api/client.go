// Package api is the HTTP/JSON client for the community feed API.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agora/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://127.0.0.1:8000/api"

// StatusError is returned for any non-2xx response. The client does not
// distinguish 4xx from 5xx; the status is kept for logging.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client issues requests against the API. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *observability.APILogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero keeps requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// NewClient returns a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		logger:  observability.NewAPILogger("feed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BasicAuthHeader builds the credential sent for password logins.
func BasicAuthHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// do sends one request. route is the path template used as a metric label;
// path is the concrete path. A nil body sends no payload; a nil dest discards
// the response body.
func (c *Client) do(ctx context.Context, method, route, path, authHeader string, body, dest any) error {
	requestID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, requestID)

	span, ctx := observability.StartClientSpan(ctx, method, route)
	defer span.End()
	ctx = observability.WithTraceID(ctx, span.TraceID())
	defer observability.TrackRequest(method, route)()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			span.SetError(err)
			return fmt.Errorf("encode %s %s body: %w", method, route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("build %s %s request: %w", method, route, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIRequests.WithLabelValues(method, route, "error").Inc()
		span.SetError(err)
		c.logger.LogError(ctx, method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	observability.APIRequests.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode)).Inc()
	span.AddAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.LogRequest(ctx, method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		span.SetError(statusErr)
		return statusErr
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		span.SetError(err)
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
