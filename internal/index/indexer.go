// Package index orchestrates ingestion: embedding chunk batches, writing
// points to the vector store, and tracking progress in a checkpoint file
// so an interrupted run resumes where it stopped.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/grapecity-cn/docsmcp/internal/chunk"
	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/store"
)

const defaultBatchSize = 128

// Embedder produces document vectors. Implemented by voyage.Client.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Store receives collections and points. Implemented by store.Client.
type Store interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dim int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, points []store.Point) error
}

// Config wires an Indexer.
type Config struct {
	// Collection is the target collection name, normally {product}_{lang}.
	Collection string

	// BatchSize is the number of chunks embedded and upserted per batch.
	BatchSize int

	// CheckpointPath is where ingestion progress is persisted.
	CheckpointPath string

	Embedder Embedder
	Store    Store
	Logger   *slog.Logger
}

// Report summarizes one ingestion run.
type Report struct {
	Total      int   `json:"total"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	DurationMS int64 `json:"duration_ms"`
}

// Indexer ingests chunk lists into one collection. Batches run strictly
// in order; the checkpoint is only meaningful because of that.
type Indexer struct {
	collection     string
	batchSize      int
	checkpointPath string
	embedder       Embedder
	store          Store
	logger         *slog.Logger
}

func New(cfg Config) (*Indexer, error) {
	if cfg.Collection == "" {
		return nil, errors.NewConfigError("indexer requires a collection name", nil)
	}
	if cfg.Embedder == nil || cfg.Store == nil {
		return nil, errors.NewConfigError("indexer requires an embedder and a store", nil)
	}
	if cfg.CheckpointPath == "" {
		return nil, errors.NewConfigError("indexer requires a checkpoint path", nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{
		collection:     cfg.Collection,
		batchSize:      cfg.BatchSize,
		checkpointPath: cfg.CheckpointPath,
		embedder:       cfg.Embedder,
		store:          cfg.Store,
		logger:         cfg.Logger,
	}, nil
}

// InitCollection prepares the target collection. With force an existing
// collection is dropped and recreated; otherwise an existing collection
// is left untouched.
func (ix *Indexer) InitCollection(ctx context.Context, force bool) error {
	exists, err := ix.store.CollectionExists(ctx, ix.collection)
	if err != nil {
		return err
	}
	if exists && force {
		ix.logger.Info("dropping existing collection", "collection", ix.collection)
		if err := ix.store.DeleteCollection(ctx, ix.collection); err != nil {
			return err
		}
		exists = false
	}
	if exists {
		ix.logger.Info("collection exists", "collection", ix.collection)
		return nil
	}
	return ix.store.CreateCollection(ctx, ix.collection, ix.embedder.Dimension())
}

// DiscardCheckpoint drops any recorded progress so the next Run starts
// from the first chunk.
func (ix *Indexer) DiscardCheckpoint() error {
	return deleteCheckpoint(ix.checkpointPath)
}

// Run ingests chunks in order. Each batch is embedded, converted to
// points, and upserted; the checkpoint advances after every batch.
// Any failure aborts the run and leaves the checkpoint in place, so the
// next Run resumes after the last recorded chunk. On clean completion the
// checkpoint is removed.
//
// A file lock next to the checkpoint serializes ingestion per product; a
// second concurrent run fails fast instead of interleaving batches.
func (ix *Indexer) Run(ctx context.Context, chunks []chunk.Chunk) (*Report, error) {
	start := time.Now()
	report := &Report{Total: len(chunks)}

	if err := os.MkdirAll(filepath.Dir(ix.checkpointPath), 0o755); err != nil {
		return nil, errors.NewIngestionError("create checkpoint directory", err)
	}
	lock := flock.New(ix.checkpointPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewIngestionError("acquire ingestion lock", err)
	}
	if !locked {
		return nil, errors.NewIngestionErrorf("another ingestion for %s is already running", ix.collection)
	}
	defer lock.Unlock()

	resumeFrom := ix.resumeIndex(chunks)
	report.Skipped = resumeFrom
	if resumeFrom > 0 {
		ix.logger.Info("resuming from checkpoint",
			"collection", ix.collection, "skipped", resumeFrom, "total", len(chunks))
	}

	for i := resumeFrom; i < len(chunks); i += ix.batchSize {
		end := min(i+ix.batchSize, len(chunks))
		batch := chunks[i:end]

		if err := ix.indexBatch(ctx, batch); err != nil {
			report.Failed = report.Total - report.Skipped - report.Succeeded
			report.DurationMS = time.Since(start).Milliseconds()
			return report, fmt.Errorf("index batch %d-%d: %w", i, end-1, err)
		}

		report.Succeeded += len(batch)
		cp := Checkpoint{
			LastProcessedChunkID: batch[len(batch)-1].ID,
			Timestamp:            time.Now().UTC(),
		}
		if err := saveCheckpoint(ix.checkpointPath, cp); err != nil {
			report.Failed = report.Total - report.Skipped - report.Succeeded
			report.DurationMS = time.Since(start).Milliseconds()
			return report, errors.NewIngestionError("write checkpoint", err)
		}

		ix.logger.Info("batch indexed",
			"collection", ix.collection,
			"done", report.Skipped+report.Succeeded,
			"total", report.Total)
	}

	if err := deleteCheckpoint(ix.checkpointPath); err != nil {
		// A leftover checkpoint only makes the next run skip chunks that
		// are already indexed.
		ix.logger.Warn("delete checkpoint failed", "path", ix.checkpointPath, "error", err)
	}

	report.DurationMS = time.Since(start).Milliseconds()
	ix.logger.Info("ingestion complete",
		"collection", ix.collection,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"duration_ms", report.DurationMS)
	return report, nil
}

// resumeIndex maps the recorded chunk ID to the position the run should
// continue from. An unreadable checkpoint or an ID that no longer exists
// in the chunk list restarts from zero.
func (ix *Indexer) resumeIndex(chunks []chunk.Chunk) int {
	cp, err := loadCheckpoint(ix.checkpointPath)
	if err != nil {
		ix.logger.Warn("checkpoint unreadable, starting over",
			"path", ix.checkpointPath, "error", err)
		return 0
	}
	if cp == nil {
		return 0
	}
	for i, c := range chunks {
		if c.ID == cp.LastProcessedChunkID {
			return i + 1
		}
	}
	ix.logger.Warn("checkpoint chunk not in current chunk list, starting over",
		"chunk_id", cp.LastProcessedChunkID)
	return 0
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []chunk.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	points := make([]store.Point, len(batch))
	for i, c := range batch {
		points[i] = store.Point{
			Payload: store.Payload{
				ChunkID:       c.ID,
				DocID:         c.DocID,
				ChunkIndex:    c.Index,
				Content:       c.Content,
				Category:      c.Meta.Category,
				FileName:      c.Meta.FileName,
				PathHierarchy: c.Meta.PathHierarchy,
				SectionPath:   c.Meta.SectionPath,
				DocTOC:        c.Meta.DocTOC,
				TotalChunks:   c.Meta.TotalChunks,
			},
			Dense: vectors[i],
		}
	}

	if err := ix.store.Upsert(ctx, ix.collection, points); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
