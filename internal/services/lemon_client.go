package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/secrets"
)

const lemonMaxRetries = 2

// LemonClient calls the billing provider's REST API. Webhooks are the
// source of truth for entitlements; this client exists for the license
// operations that have no webhook equivalent (validate/activate).
type LemonClient struct {
	baseURL    string
	httpClient *http.Client
	secrets    secrets.Store
}

// LicenseResult is the provider's answer to a validate or activate
// call, passed through to the caller mostly unshaped.
type LicenseResult struct {
	Valid      bool            `json:"valid,omitempty"`
	Activated  bool            `json:"activated,omitempty"`
	Error      string          `json:"error,omitempty"`
	LicenseKey json.RawMessage `json:"license_key,omitempty"`
	Instance   json.RawMessage `json:"instance,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
}

func NewLemonClient(baseURL string, timeout time.Duration, store secrets.Store) *LemonClient {
	return &LemonClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		secrets:    store,
	}
}

// ValidateLicense checks a license key (optionally scoped to one
// instance) against the provider.
func (c *LemonClient) ValidateLicense(ctx context.Context, licenseKey, instanceID string) (*LicenseResult, error) {
	form := url.Values{"license_key": {licenseKey}}
	if instanceID != "" {
		form.Set("instance_id", instanceID)
	}
	return c.post(ctx, "/v1/licenses/validate", form)
}

// ActivateLicense registers a named instance against a license key.
func (c *LemonClient) ActivateLicense(ctx context.Context, licenseKey, instanceName string) (*LicenseResult, error) {
	form := url.Values{
		"license_key":   {licenseKey},
		"instance_name": {instanceName},
	}
	return c.post(ctx, "/v1/licenses/activate", form)
}

func (c *LemonClient) post(ctx context.Context, path string, form url.Values) (*LicenseResult, error) {
	apiKey, err := c.secrets.Get(ctx, secrets.LemonAPIKey)
	if err != nil {
		return nil, err
	}

	body := []byte(form.Encode())

	// Transport failures get a bounded retry; HTTP-level errors do not.
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= lemonMaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build provider request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, apperr.Upstream("billing provider call cancelled", ctx.Err())
		}
		slog.Warn("billing provider call failed, retrying", "path", path, "attempt", attempt+1, "error", lastErr)
	}
	if lastErr != nil {
		return nil, apperr.Upstream("billing provider unreachable", lastErr)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("failed to read provider response", err)
	}

	// 400 is part of the validate/activate contract (e.g. expired key);
	// the body still carries a usable result.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, apperr.Upstream(
			fmt.Sprintf("billing provider returned %d: %s", resp.StatusCode, string(raw)), nil)
	}

	var result LicenseResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.Upstream("failed to decode provider response", err)
	}
	return &result, nil
}
