// Package store wraps the Qdrant gRPC client with the collection layout
// used by docsmcp: every point carries a named dense vector and a named
// BM25 sparse vector computed server-side from the chunk text.
package store

import (
	"context"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// Named vectors carried by every point.
const (
	DenseVector  = "dense"
	SparseVector = "sparse"
)

// BM25Model is the sparse model the server applies to document text.
const BM25Model = "qdrant/bm25"

// Collection tuning.
const (
	hnswM             = 16
	hnswEfConstruct   = 100
	indexingThreshold = 10000
)

// Config holds the Qdrant connection parameters.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// CollectionInfo is the subset of collection state surfaced to callers.
type CollectionInfo struct {
	Name        string `json:"name"`
	PointsCount uint64 `json:"points_count"`
	Status      string `json:"status"`
}

// Client is a thin wrapper over the Qdrant gRPC client. Safe for
// concurrent use.
type Client struct {
	qdrant *qdrant.Client
	logger *slog.Logger
}

// NewClient connects to Qdrant.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.NewAPIError("create qdrant client", 0, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{qdrant: qc, logger: logger}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.qdrant.Close()
}

// CollectionExists reports whether the collection is present.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.qdrant.CollectionExists(ctx, name)
	if err != nil {
		return false, errors.NewAPIError("check collection "+name, 0, err)
	}
	return exists, nil
}

// CreateCollection creates a collection with the docsmcp vector layout:
// a dense cosine vector of the given dimension under HNSW, and a BM25
// sparse vector with the IDF modifier.
func (c *Client) CreateCollection(ctx context.Context, name string, dim int) error {
	err := c.qdrant.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			DenseVector: {
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
				HnswConfig: &qdrant.HnswConfigDiff{
					M:           qdrant.PtrOf(uint64(hnswM)),
					EfConstruct: qdrant.PtrOf(uint64(hnswEfConstruct)),
				},
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			SparseVector: {
				Modifier: qdrant.Modifier_Idf.Enum(),
			},
		}),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			IndexingThreshold: qdrant.PtrOf(uint64(indexingThreshold)),
		},
	})
	if err != nil {
		return errors.NewAPIError("create collection "+name, 0, err)
	}
	c.logger.Info("collection created", "collection", name, "dim", dim)
	return nil
}

// DeleteCollection drops the collection and all of its points.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.qdrant.DeleteCollection(ctx, name); err != nil {
		return errors.NewAPIError("delete collection "+name, 0, err)
	}
	c.logger.Info("collection deleted", "collection", name)
	return nil
}

// Info returns point count and status for an existing collection.
func (c *Client) Info(ctx context.Context, name string) (*CollectionInfo, error) {
	info, err := c.qdrant.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, errors.NewAPIError("get collection info "+name, 0, err)
	}
	return &CollectionInfo{
		Name:        name,
		PointsCount: info.GetPointsCount(),
		Status:      info.GetStatus().String(),
	}, nil
}

// QueryHybrid prefetches dense and BM25 candidates independently and fuses
// them server-side with reciprocal-rank fusion. The fusion constant is
// fixed by the server; rrfK is accepted for interface stability and is not
// transmitted. Returns at most limit points, best first.
func (c *Client) QueryHybrid(ctx context.Context, name string, dense []float32, queryText string, prefetchLimit, limit, rrfK int) ([]ScoredChunk, error) {
	points, err := c.qdrant.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Prefetch: []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQueryDense(dense),
				Using: qdrant.PtrOf(DenseVector),
				Limit: qdrant.PtrOf(uint64(prefetchLimit)),
			},
			{
				Query: qdrant.NewQueryNearest(qdrant.NewVectorInputDocument(&qdrant.Document{
					Text:  queryText,
					Model: BM25Model,
				})),
				Using: qdrant.PtrOf(SparseVector),
				Limit: qdrant.PtrOf(uint64(prefetchLimit)),
			},
		},
		Query:       qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errors.NewAPIError("hybrid query on "+name, 0, err)
	}
	return scoredChunks(points), nil
}

// QueryDense runs a pure dense cosine query. A positive scoreThreshold
// filters out weaker matches server-side.
func (c *Client) QueryDense(ctx context.Context, name string, dense []float32, limit int, scoreThreshold float32) ([]ScoredChunk, error) {
	req := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQueryDense(dense),
		Using:          qdrant.PtrOf(DenseVector),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(scoreThreshold)
	}
	points, err := c.qdrant.Query(ctx, req)
	if err != nil {
		return nil, errors.NewAPIError("dense query on "+name, 0, err)
	}
	return scoredChunks(points), nil
}

// ScrollByDocID enumerates the points of a single document, up to limit.
// Order is store order; callers sort by chunk index.
func (c *Client) ScrollByDocID(ctx context.Context, name, docID string, limit int) ([]ScoredChunk, error) {
	points, err := c.qdrant.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: name,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_id", docID),
			},
		},
		Limit:       qdrant.PtrOf(uint32(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errors.NewAPIError("scroll "+name+" by doc_id", 0, err)
	}

	chunks := make([]ScoredChunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, chunkFromPayload(p.GetPayload(), 0))
	}
	return chunks, nil
}

// DeletePoints removes points by chunk ID.
func (c *Client) DeletePoints(ctx context.Context, name string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewID(PointID(id))
	}
	_, err := c.qdrant.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points:         qdrant.NewPointsSelector(ids...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return errors.NewAPIError("delete points from "+name, 0, err)
	}
	return nil
}

func scoredChunks(points []*qdrant.ScoredPoint) []ScoredChunk {
	chunks := make([]ScoredChunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, chunkFromPayload(p.GetPayload(), p.GetScore()))
	}
	return chunks
}
