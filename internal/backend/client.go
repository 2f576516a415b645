package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/logger"
	"github.com/crosspostme/crosspost-agent/internal/metrics"
)

// Backend operation names used for metrics labels.
const (
	OpSupportedPlatforms = "supported_platforms"
	OpConnectedPlatforms = "connected_platforms"
	OpInitiateConnect    = "initiate_connect"
	OpSubmitCredentials  = "submit_credentials"
	OpDisconnect         = "disconnect"
)

// TokenSource supplies the bearer token for authenticated backend calls.
// Token lifetime is owned by the external session collaborator, so the client
// asks for it per request instead of capturing it once.
type TokenSource func() string

// StaticToken wraps a fixed token string as a TokenSource.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// Client defines the CrossPostMe backend REST surface the agent consumes.
type Client interface {
	// SupportedPlatforms fetches the platform catalog. Unauthenticated.
	SupportedPlatforms(ctx context.Context) (map[string]SupportedPlatform, error)

	// ConnectedPlatforms fetches the authoritative connected-platform list.
	ConnectedPlatforms(ctx context.Context) ([]ConnectedRecord, error)

	// InitiateConnect starts a connection flow and returns the auth method branch.
	InitiateConnect(ctx context.Context, platform, redirectURI string) (*InitiateResponse, error)

	// SubmitCredentials submits collected credential fields for encrypted storage.
	SubmitCredentials(ctx context.Context, platform string, credentials map[string]string) error

	// Disconnect removes a platform connection.
	Disconnect(ctx context.Context, platform string) error

	// Ping probes backend reachability for readiness checks.
	Ping(ctx context.Context) error
}

// HTTPClient is the net/http implementation of Client. Requests use a bounded
// timeout; there are no automatic retries - retry is always a user-initiated
// re-invocation at the orchestrator level.
type HTTPClient struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

// NewHTTPClient creates a backend client for the given base URL.
func NewHTTPClient(baseURL string, token TokenSource, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) SupportedPlatforms(ctx context.Context) (map[string]SupportedPlatform, error) {
	var resp supportedResponse
	if err := c.do(ctx, OpSupportedPlatforms, http.MethodGet, "/api/platforms/supported", false, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

func (c *HTTPClient) ConnectedPlatforms(ctx context.Context) ([]ConnectedRecord, error) {
	var records []ConnectedRecord
	if err := c.do(ctx, OpConnectedPlatforms, http.MethodGet, "/api/platforms/connected", true, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) InitiateConnect(ctx context.Context, platform, redirectURI string) (*InitiateResponse, error) {
	req := InitiateRequest{Platform: platform, RedirectURI: redirectURI}
	var resp InitiateResponse
	if err := c.do(ctx, OpInitiateConnect, http.MethodPost, "/api/platforms/connect", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) SubmitCredentials(ctx context.Context, platform string, credentials map[string]string) error {
	req := CredentialsRequest{Platform: platform, Credentials: credentials}
	var resp messageResponse
	path := fmt.Sprintf("/api/platforms/%s/credentials", platform)
	return c.do(ctx, OpSubmitCredentials, http.MethodPost, path, true, req, &resp)
}

func (c *HTTPClient) Disconnect(ctx context.Context, platform string) error {
	var resp messageResponse
	path := fmt.Sprintf("/api/platforms/%s/disconnect", platform)
	return c.do(ctx, OpDisconnect, http.MethodDelete, path, true, nil, &resp)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp supportedResponse
	return c.do(ctx, OpSupportedPlatforms, http.MethodGet, "/api/platforms/supported", false, nil, &resp)
}

// do executes one backend request: encodes the body, sets auth, records the
// latency metric, and maps non-2xx responses to *APIError.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, auth bool, body, out interface{}) error {
	log := logger.FromContext(ctx)

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		status := "error"
		if IsTimeout(err) {
			status = "timeout"
		}
		metrics.BackendRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
		log.Warn("Backend request failed", "operation", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseErrorBody(resp)
		log.Warn("Backend request rejected",
			"operation", op,
			"status", resp.StatusCode,
			"class", string(apiErr.Class))
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
}

// parseErrorBody builds an APIError from a non-2xx response, tolerating both
// {"detail": ...} and {"error": ...} body shapes plus an optional error_class.
func parseErrorBody(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return apiErr
	}

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}

	apiErr.Detail = body.Detail
	if apiErr.Detail == "" {
		apiErr.Detail = body.Error
	}
	switch domain.RejectionClass(body.ErrorClass) {
	case domain.RejectionRecoverable:
		apiErr.Class = domain.RejectionRecoverable
	case domain.RejectionStructural:
		apiErr.Class = domain.RejectionStructural
	}
	return apiErr
}

const maxErrorBodyBytes = 64 << 10
