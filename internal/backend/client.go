package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"easel/internal/config"
)

// ErrNotReady marks a history poll whose result is not available yet. It is
// a retry signal for the orchestrator, never a terminal failure.
var ErrNotReady = errors.New("history not ready")

// MinArtifactBytes is the smallest payload accepted from the view endpoint.
// Anything shorter is treated as a truncated or corrupt artifact.
const MinArtifactBytes = 1000

const defaultImageContentType = "image/png"

// Client describes the three backend capabilities the orchestrator uses,
// plus the readiness probe used at startup.
type Client interface {
	Submit(ctx context.Context, workflow json.RawMessage) (string, error)
	History(ctx context.Context, promptID string) (*Execution, error)
	FetchArtifact(ctx context.Context, desc Descriptor) (Payload, error)
	ViewURL(desc Descriptor) string
	Ping(ctx context.Context) error
}

// HTTPDoer describes the HTTP client used to reach the backend.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient talks to a ComfyUI-style backend over its prompt/history/view
// surface.
type HTTPClient struct {
	baseURL         string
	client          HTTPDoer
	submitTimeout   time.Duration
	statusTimeout   time.Duration
	artifactTimeout time.Duration
	pingTimeout     time.Duration
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// New creates a backend client for the given base URL.
func New(baseURL string, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base url required")
	}
	client := &HTTPClient{
		baseURL:         baseURL,
		client:          http.DefaultClient,
		submitTimeout:   30 * time.Second,
		statusTimeout:   10 * time.Second,
		artifactTimeout: 120 * time.Second,
		pingTimeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig creates a backend client using configured timeouts.
func NewFromConfig(cfg *config.Config, opts ...Option) (*HTTPClient, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	client, err := New(cfg.Backend.URL, opts...)
	if err != nil {
		return nil, err
	}
	client.submitTimeout = cfg.SubmitTimeout()
	client.statusTimeout = cfg.StatusTimeout()
	client.artifactTimeout = cfg.ArtifactTimeout()
	client.pingTimeout = time.Duration(cfg.Backend.ReadyTimeoutSeconds) * time.Second
	return client, nil
}

// Submit queues a workflow and returns the backend-assigned prompt id.
// Any non-200 response or missing id is terminal; there are no retries.
func (c *HTTPClient) Submit(ctx context.Context, workflow json.RawMessage) (string, error) {
	body, err := json.Marshal(map[string]json.RawMessage{"prompt": workflow})
	if err != nil {
		return "", fmt.Errorf("encode workflow: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("submit returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if strings.TrimSpace(payload.PromptID) == "" {
		return "", errors.New("no prompt_id returned by backend")
	}
	return payload.PromptID, nil
}

// History fetches the execution record for a prompt id. Transport failures,
// non-200 responses, malformed bodies, and ids absent from the history are
// all reported as ErrNotReady so the caller keeps polling.
func (c *HTTPClient) History(ctx context.Context, promptID string) (*Execution, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: history returned %d", ErrNotReady, resp.StatusCode)
	}

	var history map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("%w: decode history: %v", ErrNotReady, err)
	}
	entry, ok := history[promptID]
	if !ok {
		return nil, fmt.Errorf("%w: prompt %s not in history", ErrNotReady, promptID)
	}

	var execution Execution
	if err := json.Unmarshal(entry, &execution); err != nil {
		return nil, fmt.Errorf("%w: decode execution: %v", ErrNotReady, err)
	}
	return &execution, nil
}

// FetchArtifact downloads artifact bytes from the view endpoint. A missing
// filename, transport failure, non-200, or undersized payload is terminal.
func (c *HTTPClient) FetchArtifact(ctx context.Context, desc Descriptor) (Payload, error) {
	if strings.TrimSpace(desc.Filename) == "" {
		return Payload{}, errors.New("missing filename in artifact descriptor")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.artifactTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.ViewURL(desc), nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build view request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("view returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, fmt.Errorf("read artifact: %w", err)
	}
	if len(data) < MinArtifactBytes {
		return Payload{}, fmt.Errorf("artifact too small (%d bytes)", len(data))
	}

	return Payload{
		Data:        data,
		ContentType: normalizeContentType(resp.Header.Get("Content-Type")),
	}, nil
}

// ViewURL builds the static-serving URL for an artifact descriptor.
func (c *HTTPClient) ViewURL(desc Descriptor) string {
	params := url.Values{}
	params.Set("filename", desc.Filename)
	params.Set("type", desc.Kind())
	if desc.Subfolder != "" {
		params.Set("subfolder", desc.Subfolder)
	}
	return c.baseURL + "/view?" + params.Encode()
}

// Ping probes the backend's stats endpoint to confirm it is serving.
func (c *HTTPClient) Ping(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend stats returned %d", resp.StatusCode)
	}
	return nil
}

func normalizeContentType(header string) string {
	value := strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	if !strings.HasPrefix(value, "image/") && !strings.HasPrefix(value, "audio/") {
		return defaultImageContentType
	}
	return value
}
