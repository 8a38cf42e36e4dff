package voyage

import (
	"context"
	"fmt"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

type embeddingsRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type embeddingsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedDocuments embeds texts for storage, preserving input order. Texts
// are split into batches by estimated token load; each batch passes the
// rate limiter before the request is sent. A RateLimitError escapes so the
// caller can decode the retry-after; upstream failures are retried per the
// standard policy.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	for _, batch := range buildBatches(texts, MaxBatchTokens, c.batchSize) {
		if err := c.limiter.CheckAndRecord(batch.Tokens); err != nil {
			return nil, err
		}
		vectors, err := c.embedBatch(ctx, batch.Texts, InputDocument)
		if err != nil {
			return nil, err
		}
		copy(out[batch.Start:], vectors)
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := c.limiter.CheckAndRecord(EstimateTokens(query)); err != nil {
		return nil, err
	}
	vectors, err := c.embedBatch(ctx, []string{query}, InputQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.NewAPIError("no embedding returned for query", 0, nil)
	}
	return vectors[0], nil
}

// embedBatch sends one embeddings request and validates the result. Every
// returned vector is checked against the model's declared dimension;
// mismatch is fatal rather than retried.
func (c *Client) embedBatch(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	var resp embeddingsResponse
	err := withRetry(ctx, c.retry, func() error {
		resp = embeddingsResponse{}
		return c.post(ctx, "/embeddings", embeddingsRequest{
			Input:     texts,
			Model:     c.embedModel,
			InputType: inputType,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, &errors.Error{
			Kind:    errors.KindAPI,
			Message: fmt.Sprintf("embeddings count mismatch: sent %d inputs, got %d vectors", len(texts), len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, &errors.Error{
				Kind:    errors.KindAPI,
				Message: fmt.Sprintf("embeddings index %d out of range", d.Index),
			}
		}
		if len(d.Embedding) != c.dims {
			return nil, &errors.Error{
				Kind:    errors.KindAPI,
				Message: fmt.Sprintf("embedding dimension mismatch: model %s declares %d, got %d", c.embedModel, c.dims, len(d.Embedding)),
			}
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
