// Package api provides the authenticated HTTP client for the catalog backend.
// It owns the cookie jar holding the session and CSRF cookies and attaches the
// anti-forgery header to every mutating request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
)

const (
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
	csrfPath       = "/api/csrf/"
)

// Options groups dependencies for NewClient.
type Options struct {
	// BaseURL is the backend origin, without a trailing slash.
	BaseURL string
	// Timeout bounds each request. Zero means 10s.
	Timeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// Transport overrides the HTTP transport (tests). Nil uses the default.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client is a cookie-session HTTP client for the catalog backend. Cookies
// (session and CSRF) live in an in-memory jar; mutating requests carry the
// X-CSRFToken header sourced from the csrftoken cookie, with a dedicated
// token-issuance round trip performed on demand. Read-only requests never
// trigger issuance.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger

	// csrf deduplicates concurrent token-issuance round trips.
	csrf singleflight.Group
}

// NewClient constructs a Client with a fresh cookie jar.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "chemcat-cli"
	}

	return &Client{
		base: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		userAgent: userAgent,
		logger:    opts.Logger,
	}, nil
}

func (c *Client) log() *slog.Logger {
	if c != nil && c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string { return c.base.String() }

// CSRFToken returns the current csrftoken cookie value, or "" when absent.
func (c *Client) CSRFToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// EnsureCSRF returns a CSRF token, performing the token-issuance round trip
// when the cookie is absent or force is set. Concurrent callers share one
// in-flight issuance.
func (c *Client) EnsureCSRF(ctx context.Context, force bool) (string, error) {
	if token := c.CSRFToken(); token != "" && !force {
		return token, nil
	}

	_, err, _ := c.csrf.Do(csrfCookieName, func() (any, error) {
		// Re-check under the flight lock: a caller that raced a completed
		// issuance must not trigger another one.
		if token := c.CSRFToken(); token != "" && !force {
			return nil, nil
		}
		req, reqErr := c.newRequest(ctx, http.MethodGet, csrfPath, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// Body ignored; the cookie jar captures the token.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.Body.Close()
	})
	if err != nil {
		return "", apperrors.Transport(err, "Could not obtain a CSRF token")
	}
	return c.CSRFToken(), nil
}

// mutating reports whether a method requires CSRF protection.
func mutating(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// Do issues an authenticated request. Session cookies are always attached;
// mutating methods additionally carry the CSRF header, issuing a token first
// when the jar has none. A non-nil body is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if mutating(method) {
		token, csrfErr := c.EnsureCSRF(ctx, false)
		if csrfErr != nil {
			return nil, csrfErr
		}
		req.Header.Set(csrfHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Transport(err, "Request failed")
	}
	return resp, nil
}

// backendPayload is the error/message envelope used by every backend endpoint.
type backendPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DoJSON issues a request and decodes the JSON response into out (which may
// be nil). A non-2xx status is surfaced as a backend rejection carrying the
// backend-supplied text from the "error" key when present, else "message",
// else the given fallback.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, fallback string) error {
	return c.doJSON(ctx, method, path, body, out, fallback, false)
}

// DoJSONMessageFirst is DoJSON for endpoints whose rejection envelope carries
// the displayable text under "message" with machine detail under "error".
// The login and register endpoints answer this way.
func (c *Client) DoJSONMessageFirst(ctx context.Context, method, path string, body, out any, fallback string) error {
	return c.doJSON(ctx, method, path, body, out, fallback, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, fallback string, messageFirst bool) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transport(err, "Read response failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.rejectionError(resp.StatusCode, data, fallback, messageFirst)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTransport, "Unexpected response from server")
		}
	}
	return nil
}

// rejectionError maps a non-2xx response to a displayable AppError.
func (c *Client) rejectionError(status int, data []byte, fallback string, messageFirst bool) error {
	var payload backendPayload
	_ = json.Unmarshal(data, &payload)

	first, second := payload.Error, payload.Message
	if messageFirst {
		first, second = payload.Message, payload.Error
	}
	message := first
	if message == "" {
		message = second
	}
	if message == "" {
		message = fallback
	}
	if message == "" {
		message = fmt.Sprintf("Request failed with status %d", status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized(message)
	case http.StatusNotFound:
		return apperrors.NotFound(message)
	default:
		return apperrors.Backend(message)
	}
}
