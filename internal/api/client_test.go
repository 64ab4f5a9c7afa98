package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemcat/chemcat-cli/internal/domain/auth"
	apperrors "github.com/chemcat/chemcat-cli/internal/errors"
	"github.com/chemcat/chemcat-cli/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Options{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)

	_, err = NewClient(Options{BaseURL: "   "})
	require.Error(t, err)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	client := newTestClient(t, "http://localhost:8000/")
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
}

func TestReadRequestNeverIssuesCSRF(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := newTestClient(t, backend.URL())

	resp, err := client.Do(context.Background(), http.MethodGet, "/api/auth/me/", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, 0, backend.CSRFHits())
	assert.Empty(t, client.CSRFToken())
}

func TestMutatingRequestIssuesCSRFOnce(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := newTestClient(t, backend.URL())
	creds := auth.Credentials{Email: backend.Email, Password: backend.Password}

	err := client.DoJSON(context.Background(), http.MethodPost, "/api/auth/login/", creds, nil, "Login failed")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CSRFHits())
	assert.NotEmpty(t, client.CSRFToken())

	// The cached cookie is reused; no second issuance round trip.
	err = client.DoJSON(context.Background(), http.MethodPost, "/api/auth/logout/", nil, nil, "Logout failed")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.CSRFHits())
}

func TestConcurrentMutationsShareOneIssuance(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := newTestClient(t, backend.URL())
	creds := auth.Credentials{Email: backend.Email, Password: backend.Password}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.DoJSON(context.Background(), http.MethodPost, "/api/auth/login/", creds, nil, "Login failed")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.CSRFHits())
}

func TestEnsureCSRFForceReissues(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := newTestClient(t, backend.URL())

	first, err := client.EnsureCSRF(context.Background(), false)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := client.EnsureCSRF(context.Background(), true)
	require.NoError(t, err)
	require.NotEmpty(t, second)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, backend.CSRFHits())
}

func TestDoSetsRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.Do(context.Background(), http.MethodGet, "/api/auth/me/", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "XMLHttpRequest", got.Get("X-Requested-With"))
	assert.Equal(t, "chemcat-cli", got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestDoJSONDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var out struct {
		Value int `json:"value"`
	}
	err := client.DoJSON(context.Background(), http.MethodGet, "/anything", nil, &out, "failed")
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestDoJSONErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{
			name:    "401 unauthorized with backend message",
			status:  http.StatusUnauthorized,
			body:    `{"error": "Invalid credentials"}`,
			check:   apperrors.IsUnauthorized,
			message: "Invalid credentials",
		},
		{
			name:    "403 forbidden",
			status:  http.StatusForbidden,
			body:    `{"error": "CSRF token missing or invalid"}`,
			check:   apperrors.IsUnauthorized,
			message: "CSRF token missing or invalid",
		},
		{
			name:    "404 not found",
			status:  http.StatusNotFound,
			body:    `{}`,
			check:   apperrors.IsNotFound,
			message: "fallback message",
		},
		{
			name:    "400 backend rejection via message key",
			status:  http.StatusBadRequest,
			body:    `{"message": "Name is required"}`,
			check:   apperrors.IsBackend,
			message: "Name is required",
		},
		{
			name:    "500 without envelope uses fallback",
			status:  http.StatusInternalServerError,
			body:    `<html>oops</html>`,
			check:   apperrors.IsBackend,
			message: "fallback message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			err := client.DoJSON(context.Background(), http.MethodGet, "/anything", nil, nil, "fallback message")

			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.message, apperrors.DisplayMessage(err))
		})
	}
}

func TestRejectionKeyPreference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "machine detail", "message": "Readable text"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	err := client.DoJSON(context.Background(), http.MethodGet, "/anything", nil, nil, "fallback")
	require.Error(t, err)
	assert.Equal(t, "machine detail", apperrors.DisplayMessage(err))

	err = client.DoJSONMessageFirst(context.Background(), http.MethodGet, "/anything", nil, nil, "fallback")
	require.Error(t, err)
	assert.Equal(t, "Readable text", apperrors.DisplayMessage(err))
}

func TestDoJSONStatusOnlyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.DoJSON(context.Background(), http.MethodGet, "/anything", nil, nil, "")

	require.Error(t, err)
	assert.Equal(t, "Request failed with status 502", apperrors.DisplayMessage(err))
}

func TestDoTransportFailure(t *testing.T) {
	// Reserved TEST-NET address: connection refused or timeout either way.
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodGet, "/api/auth/me/", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
}

func TestMutatingCSRFIssuanceFailureSurfacesTransport(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodPost, "/api/auth/login/", map[string]string{})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Equal(t, "Could not obtain a CSRF token", apperrors.DisplayMessage(err))
}
