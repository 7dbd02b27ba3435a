package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwl-dev/lemongate/internal/secrets"
)

var lemonTestSecrets = secrets.StaticStore{
	secrets.LemonAPIKey: "test-api-key",
}

func TestValidateLicense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/licenses/validate", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "AAAA-BBBB", r.PostForm.Get("license_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"license_key":{"status":"active"}}`))
	}))
	defer server.Close()

	client := NewLemonClient(server.URL, time.Second, lemonTestSecrets)

	result, err := client.ValidateLicense(context.Background(), "AAAA-BBBB", "")
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestActivateLicense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/licenses/activate", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "AAAA-BBBB", r.PostForm.Get("license_key"))
		assert.Equal(t, "my-machine", r.PostForm.Get("instance_name"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"activated":true,"instance":{"id":"inst-1"}}`))
	}))
	defer server.Close()

	client := NewLemonClient(server.URL, time.Second, lemonTestSecrets)

	result, err := client.ActivateLicense(context.Background(), "AAAA-BBBB", "my-machine")
	require.NoError(t, err)
	assert.True(t, result.Activated)
}

// 400 carries a usable result (e.g. an expired key) and is not treated
// as an upstream failure.
func TestLicenseErrorBodyPassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"valid":false,"error":"license_key not found"}`))
	}))
	defer server.Close()

	client := NewLemonClient(server.URL, time.Second, lemonTestSecrets)

	result, err := client.ValidateLicense(context.Background(), "BAD-KEY", "")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "license_key not found", result.Error)
}

func TestServerErrorIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewLemonClient(server.URL, time.Second, lemonTestSecrets)

	_, err := client.ValidateLicense(context.Background(), "AAAA-BBBB", "")
	assert.Error(t, err)
}

func TestTransportFailureRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the first connection mid-request.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true}`))
	}))
	defer server.Close()

	client := NewLemonClient(server.URL, time.Second, lemonTestSecrets)

	result, err := client.ValidateLicense(context.Background(), "AAAA-BBBB", "")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int32(2), calls.Load())
}
