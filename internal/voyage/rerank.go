package voyage

import (
	"context"
)

// RerankResult is one reranked document: its index within the input slice
// and the cross-encoder relevance score.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopK      int      `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Object string         `json:"object"`
	Data   []RerankResult `json:"data"`
	Model  string         `json:"model"`
	Usage  struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Rerank scores documents against query with the cross-encoder and returns
// the top topK matches, best first. Retry semantics match the embeddings
// endpoint. Reranking is best-effort: callers are expected to absorb a
// failure and keep the input order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(documents) {
		topK = len(documents)
	}

	tokens := EstimateTokens(query) + EstimateTotalTokens(documents)
	if err := c.limiter.CheckAndRecord(tokens); err != nil {
		return nil, err
	}

	var resp rerankResponse
	err := withRetry(ctx, c.retry, func() error {
		resp = rerankResponse{}
		return c.post(ctx, "/rerank", rerankRequest{
			Query:     query,
			Documents: documents,
			Model:     c.rerankModel,
			TopK:      topK,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
