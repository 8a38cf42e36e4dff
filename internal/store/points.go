package store

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

const (
	// upsertSubBatch caps points per upsert call. The BM25 document input
	// repeats the full chunk text, so request bodies grow fast.
	upsertSubBatch = 32

	upsertAttempts = 3
	upsertDelay    = 1 * time.Second
)

// Upsert writes points in sub-batches, waiting for server ack on each.
// Transient failures are retried with linear backoff before the batch
// error escapes.
func (c *Client) Upsert(ctx context.Context, name string, points []Point) error {
	for start := 0; start < len(points); start += upsertSubBatch {
		end := min(start+upsertSubBatch, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id: qdrant.NewID(PointID(p.ChunkID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					DenseVector: qdrant.NewVector(p.Dense...),
					SparseVector: qdrant.NewVectorDocument(&qdrant.Document{
						Text:  p.Content,
						Model: BM25Model,
					}),
				}),
				Payload: payloadValues(p.Payload),
			})
		}

		if err := c.upsertBatch(ctx, name, batch); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upsertBatch(ctx context.Context, name string, batch []*qdrant.PointStruct) error {
	var lastErr error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		_, err := c.qdrant.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         batch,
			Wait:           qdrant.PtrOf(true),
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < upsertAttempts {
			c.logger.Warn("upsert failed, retrying",
				"collection", name,
				"attempt", attempt,
				"error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(upsertDelay):
			}
		}
	}
	return errors.NewAPIError(fmt.Sprintf("upsert %d points into %s", len(batch), name), 0, lastErr)
}
