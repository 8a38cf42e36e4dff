package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grapecity-cn/docsmcp/internal/chunk"
	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/store"
)

type fakeEmbedder struct {
	dims   int
	calls  [][]string
	failOn int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, errors.NewAPIError("embed failed", 503, nil)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dims }

type fakeStore struct {
	exists  bool
	created []int
	deleted int
	upserts [][]store.Point
	failOn  int
}

func (f *fakeStore) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) CreateCollection(_ context.Context, _ string, dim int) error {
	f.created = append(f.created, dim)
	f.exists = true
	return nil
}

func (f *fakeStore) DeleteCollection(context.Context, string) error {
	f.deleted++
	f.exists = false
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, _ string, points []store.Point) error {
	f.upserts = append(f.upserts, points)
	if f.failOn > 0 && len(f.upserts) == f.failOn {
		return errors.NewAPIError("upsert failed", 503, nil)
	}
	return nil
}

func testChunks(n int) []chunk.Chunk {
	out := make([]chunk.Chunk, n)
	for i := range out {
		out[i] = chunk.Chunk{
			ID:      fmt.Sprintf("doc_chunk%d", i),
			DocID:   "doc",
			Index:   i,
			Content: fmt.Sprintf("content %d", i),
			Meta:    chunk.Metadata{Category: "doc", FileName: "f.md", TotalChunks: n},
		}
	}
	return out
}

func newTestIndexer(t *testing.T, emb *fakeEmbedder, st *fakeStore, batchSize int) (*Indexer, string) {
	t.Helper()
	cpPath := filepath.Join(t.TempDir(), "checkpoint-test.json")
	ix, err := New(Config{
		Collection:     "test_en",
		BatchSize:      batchSize,
		CheckpointPath: cpPath,
		Embedder:       emb,
		Store:          st,
	})
	require.NoError(t, err)
	return ix, cpPath
}

func TestIndexer_RunBatches(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true}
	ix, cpPath := newTestIndexer(t, emb, st, 2)

	report, err := ix.Run(context.Background(), testChunks(5))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Succeeded)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, emb.calls, 3)
	assert.Equal(t, []string{"content 0", "content 1"}, emb.calls[0])
	assert.Equal(t, []string{"content 4"}, emb.calls[2])

	require.Len(t, st.upserts, 3)
	first := st.upserts[0][0]
	assert.Equal(t, "doc_chunk0", first.Payload.ChunkID)
	assert.Equal(t, "doc", first.Payload.DocID)
	assert.Equal(t, "content 0", first.Payload.Content)
	assert.Len(t, first.Dense, 2)

	_, err = os.Stat(cpPath)
	assert.True(t, os.IsNotExist(err), "checkpoint must be removed after a clean run")
}

func TestIndexer_ResumesFromCheckpoint(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true}
	ix, cpPath := newTestIndexer(t, emb, st, 2)

	require.NoError(t, saveCheckpoint(cpPath, Checkpoint{LastProcessedChunkID: "doc_chunk2"}))

	report, err := ix.Run(context.Background(), testChunks(5))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, emb.calls, 1)
	assert.Equal(t, []string{"content 3", "content 4"}, emb.calls[0])
}

func TestIndexer_AbortKeepsCheckpoint(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true, failOn: 2}
	ix, cpPath := newTestIndexer(t, emb, st, 2)

	report, err := ix.Run(context.Background(), testChunks(5))
	require.Error(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 3, report.Failed)

	cp, cerr := loadCheckpoint(cpPath)
	require.NoError(t, cerr)
	require.NotNil(t, cp, "an aborted run must leave its checkpoint behind")
	assert.Equal(t, "doc_chunk1", cp.LastProcessedChunkID)

	// The next run picks up where the failure happened.
	st.failOn = 0
	report, err = ix.Run(context.Background(), testChunks(5))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 3, report.Succeeded)
}

func TestIndexer_StaleCheckpointRestarts(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true}
	ix, cpPath := newTestIndexer(t, emb, st, 3)

	require.NoError(t, saveCheckpoint(cpPath, Checkpoint{LastProcessedChunkID: "gone_chunk99"}))

	report, err := ix.Run(context.Background(), testChunks(4))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 4, report.Succeeded)
}

func TestIndexer_InitCollection(t *testing.T) {
	emb := &fakeEmbedder{dims: 1024}

	t.Run("creates when missing", func(t *testing.T) {
		st := &fakeStore{}
		ix, _ := newTestIndexer(t, emb, st, 2)
		require.NoError(t, ix.InitCollection(context.Background(), false))
		assert.Equal(t, []int{1024}, st.created)
	})

	t.Run("leaves existing without force", func(t *testing.T) {
		st := &fakeStore{exists: true}
		ix, _ := newTestIndexer(t, emb, st, 2)
		require.NoError(t, ix.InitCollection(context.Background(), false))
		assert.Empty(t, st.created)
		assert.Zero(t, st.deleted)
	})

	t.Run("force recreates", func(t *testing.T) {
		st := &fakeStore{exists: true}
		ix, _ := newTestIndexer(t, emb, st, 2)
		require.NoError(t, ix.InitCollection(context.Background(), true))
		assert.Equal(t, 1, st.deleted)
		assert.Equal(t, []int{1024}, st.created)
	})
}

func TestIndexer_LockRejectsConcurrentRun(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true}
	ix, cpPath := newTestIndexer(t, emb, st, 2)

	other := flock.New(cpPath + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	_, err = ix.Run(context.Background(), testChunks(2))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIngestion))
	assert.Contains(t, err.Error(), "already running")
}

func TestIndexer_DiscardCheckpoint(t *testing.T) {
	emb := &fakeEmbedder{dims: 2}
	st := &fakeStore{exists: true}
	ix, cpPath := newTestIndexer(t, emb, st, 2)

	require.NoError(t, saveCheckpoint(cpPath, Checkpoint{LastProcessedChunkID: "doc_chunk0"}))
	require.NoError(t, ix.DiscardCheckpoint())

	_, err := os.Stat(cpPath)
	assert.True(t, os.IsNotExist(err))

	// Discarding twice is fine.
	require.NoError(t, ix.DiscardCheckpoint())
}

func TestIndexer_RequiresWiring(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
