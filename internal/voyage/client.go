// Package voyage wraps the Voyage AI embeddings and rerank HTTP API with
// token-estimated dynamic batching, sliding-window rate limiting, and
// bounded retry.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/ratelimit"
)

// API defaults.
const (
	DefaultBaseURL = "https://api.voyageai.com/v1"

	// DefaultDimension is the output dimension of voyage-code-3.
	DefaultDimension = 1024

	// MaxBatchTokens is half the provider's 120k per-request ceiling,
	// leaving slack for estimate drift.
	MaxBatchTokens = 60000

	// DefaultMaxBatchSize is the provider's per-request input ceiling.
	DefaultMaxBatchSize = 128

	defaultTimeout = 120 * time.Second
)

// Input types accepted by the embeddings endpoint.
const (
	InputDocument = "document"
	InputQuery    = "query"
)

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string // defaults to DefaultBaseURL
	EmbedModel  string
	RerankModel string

	// Dimension is the embed model's declared output dimension. Every
	// returned vector is checked against it; mismatch is fatal.
	Dimension int

	// MaxBatchSize caps inputs per embeddings request.
	MaxBatchSize int

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client
}

// Client talks to the Voyage AI API. All requests pass through the shared
// rate limiter before touching the network. Safe for concurrent use.
type Client struct {
	client      *http.Client
	limiter     *ratelimit.Limiter
	baseURL     string
	apiKey      string
	embedModel  string
	rerankModel string
	dims        int
	batchSize   int
	retry       RetryConfig
}

// NewClient creates a Voyage client. The limiter gates both embeddings and
// rerank calls; pass the same limiter to every client sharing an API key.
func NewClient(cfg Config, limiter *ratelimit.Limiter) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("voyage API key is empty", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		client:      httpClient,
		limiter:     limiter,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		embedModel:  cfg.EmbedModel,
		rerankModel: cfg.RerankModel,
		dims:        cfg.Dimension,
		batchSize:   cfg.MaxBatchSize,
		retry:       DefaultRetryConfig(),
	}, nil
}

// Dimension returns the embed model's declared output dimension.
func (c *Client) Dimension() int {
	return c.dims
}

// EmbedModel returns the embeddings model name.
func (c *Client) EmbedModel() string {
	return c.embedModel
}

// post sends one JSON request and decodes the response into out. Non-2xx
// statuses become APIErrors carrying the upstream status so the retry loop
// can classify them.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewAPIError("marshal request", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.NewAPIError("build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewAPIError("voyage request failed", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewAPIError(
			"voyage "+path+" returned "+resp.Status+": "+string(respBody),
			resp.StatusCode, nil,
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewAPIError("decode response", 0, err)
	}
	return nil
}
