package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 5 * time.Minute
	userAgent      = "citewatch/1.0"
	maxErrorBody   = 300
)

// userAgentTransport wraps an http.RoundTripper to set the citewatch
// User-Agent on every outbound request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport},
	}
}

// apiClient posts JSON to one provider and returns the raw reply body.
type apiClient struct {
	provider Provider
	baseURL  string
	apiKey   string
	headers  func(apiKey string) map[string]string
	client   *http.Client
}

func newAPIClient(provider Provider, cfg ProviderConfig, defaultBaseURL string, headers func(string) map[string]string) *apiClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &apiClient{
		provider: provider,
		baseURL:  strings.TrimSuffix(base, "/"),
		apiKey:   cfg.APIKey,
		headers:  headers,
		client:   newHTTPClient(cfg.Timeout),
	}
}

func bearerHeaders(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

// post sends body as JSON to path. Any transport failure, non-2xx status or
// non-JSON reply is reported as ErrProviderRequestFailed.
func (c *apiClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s: missing API key", ErrProviderRequestFailed, c.provider)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers(c.apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: sending request: %v", ErrProviderRequestFailed, c.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading response body: %v", ErrProviderRequestFailed, c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			ErrProviderRequestFailed, c.provider, resp.StatusCode, apiErrorMessage(respBody))
	}

	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%w: %s: reply is not valid JSON", ErrProviderRequestFailed, c.provider)
	}
	return respBody, nil
}

// apiErrorMessage pulls the message out of the common error envelopes
// ({"error":{"message":...}} or {"error":"..."}), falling back to the
// truncated body.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}

	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// logCall logs an outbound completion call at debug level.
func logCall(provider Provider, model string) {
	slog.Debug("calling provider API", "provider", string(provider), "model", model)
}

// mustMarshal encodes values built from plain structs and strings, which
// cannot fail to marshal.
func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("ai: marshaling %T: %v", v, err))
	}
	return b
}

func containsModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}
