package integration

// Integration tests - these run the full flow from raw markdown through
// loading, chunking and ingestion to search, with in-memory stand-ins for
// the embedding API and the vector store.

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grapecity-cn/docsmcp/internal/chunk"
	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/index"
	"github.com/grapecity-cn/docsmcp/internal/loader"
	"github.com/grapecity-cn/docsmcp/internal/search"
	"github.com/grapecity-cn/docsmcp/internal/store"
)

// hashEmbedder produces deterministic term-frequency vectors. Texts that
// share words end up close in cosine space, which is all the pipeline needs
// to rank related content first.
type hashEmbedder struct {
	dim int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dim: 256}
}

func (e *hashEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(term, ".,:;()[]{}`\"'")))
		vec[int(h.Sum32())%e.dim]++
	}

	// Unit length, so dot products behave like cosine similarity.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	return e.embed(query), nil
}

func (e *hashEmbedder) Dimension() int { return e.dim }

// memoryStore keeps collections in memory and answers queries by vector
// similarity. It satisfies both the ingestion and the retrieval store
// interfaces so a single instance carries data across the whole pipeline.
type memoryStore struct {
	mu          sync.Mutex
	collections map[string][]store.Point
}

func newMemoryStore() *memoryStore {
	return &memoryStore{collections: make(map[string][]store.Point)}
}

func (m *memoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *memoryStore) CreateCollection(_ context.Context, name string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = nil
	return nil
}

func (m *memoryStore) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// Upsert replaces points carrying an already-stored chunk ID, mirroring the
// ID-keyed upsert semantics of the real store.
func (m *memoryStore) Upsert(_ context.Context, name string, points []store.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.collections[name]
	for _, p := range points {
		replaced := false
		for i := range existing {
			if existing[i].ChunkID == p.ChunkID {
				existing[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, p)
		}
	}
	m.collections[name] = existing
	return nil
}

func (m *memoryStore) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[name])
}

func (m *memoryStore) QueryHybrid(_ context.Context, name string, dense []float32, _ string, _, limit, _ int) ([]store.ScoredChunk, error) {
	return m.query(name, dense, limit, -1), nil
}

func (m *memoryStore) QueryDense(_ context.Context, name string, dense []float32, limit int, scoreThreshold float32) ([]store.ScoredChunk, error) {
	return m.query(name, dense, limit, scoreThreshold), nil
}

func (m *memoryStore) query(name string, dense []float32, limit int, threshold float32) []store.ScoredChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []store.ScoredChunk
	for _, p := range m.collections[name] {
		score := dot(p.Dense, dense)
		if score < threshold {
			continue
		}
		hits = append(hits, store.ScoredChunk{Payload: p.Payload, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (m *memoryStore) ScrollByDocID(_ context.Context, name, docID string, limit int) ([]store.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []store.ScoredChunk
	for _, p := range m.collections[name] {
		if p.DocID != docID {
			continue
		}
		out = append(out, store.ScoredChunk{Payload: p.Payload})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// writeCorpus lays out a small documentation tree in the raw data shape:
// apis/, docs/ and demos/ subdirectories holding markdown files.
func writeCorpus(t *testing.T) string {
	t.Helper()
	base := t.TempDir()

	files := map[string]string{
		"docs/features/merge-cells.md": `# Merging Cells

Cells can be merged across rows and columns with spans.

## Adding a span

Call addSpan on the active sheet to merge a cell range:

` + "```js\nsheet.addSpan(0, 0, 2, 3);\n```" + `

## Removing a span

removeSpan restores the original cell grid from a merged range.
`,
		"apis/classes/workbook.md": `# Workbook

The Workbook is the top level container of all sheets.

## getActiveSheet

Returns the currently active worksheet instance.

## setActiveSheetIndex

Switches the active worksheet by zero-based index.
`,
		"demos/pivot/pivot-table.md": `# Pivot Table

Build a pivot table from a data range.

## Layout

Drag fields between the rows, columns and values areas.
`,
		// Word-export noise: nested spans around prose, plus a code block
		// larger than the chunk budget.
		"docs/tutorials/custom-functions.md": `# Custom Functions

<span style="color:red"><span><span><span><span>Formulas can call functions registered from script code.</span></span></span></span></span>

## Registering

Register each function on the workbook before any formula references it:

` + "```js\n" +
			"workbook.addCustomFunction(buildFn(0));\n" +
			"workbook.addCustomFunction(buildFn(1));\n" +
			"workbook.addCustomFunction(buildFn(2));\n" +
			"workbook.addCustomFunction(buildFn(3));\n" +
			"workbook.addCustomFunction(buildFn(4));\n" +
			"workbook.addCustomFunction(buildFn(5));\n" +
			"workbook.addCustomFunction(buildFn(6));\n" +
			"workbook.addCustomFunction(buildFn(7));\n" +
			"workbook.addCustomFunction(buildFn(8));\n" +
			"```" + `
`,
	}
	for rel, content := range files {
		path := filepath.Join(base, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return base
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ingestCorpus runs loader, chunker and indexer over the test corpus and
// returns the chunks alongside the populated store and embedder.
func ingestCorpus(t *testing.T, collection string) ([]chunk.Chunk, *memoryStore, *hashEmbedder, *index.Indexer) {
	t.Helper()
	ctx := context.Background()
	logger := quietLogger()

	ld, err := loader.New(writeCorpus(t), logger)
	require.NoError(t, err)
	docs, err := ld.LoadAll(ctx, []string{"apis", "docs", "demos"})
	require.NoError(t, err)
	require.Len(t, docs, 4)

	// MinChunkSize 1 keeps every section; the corpus is deliberately tiny.
	chunker, err := chunk.New(chunk.StrategyMarkdown, chunk.Options{ChunkSize: 200, MinChunkSize: 1})
	require.NoError(t, err)
	chunks := chunker.ChunkDocuments(docs)
	require.NotEmpty(t, chunks)

	emb := newHashEmbedder()
	ms := newMemoryStore()

	ix, err := index.New(index.Config{
		Collection:     collection,
		BatchSize:      4,
		CheckpointPath: filepath.Join(t.TempDir(), collection+".checkpoint.json"),
		Embedder:       emb,
		Store:          ms,
		Logger:         logger,
	})
	require.NoError(t, err)

	require.NoError(t, ix.InitCollection(ctx, false))
	report, err := ix.Run(ctx, chunks)
	require.NoError(t, err)
	require.Equal(t, len(chunks), report.Succeeded)
	require.Zero(t, report.Failed)

	return chunks, ms, emb, ix
}

func newSearcher(t *testing.T, collection string, ms *memoryStore, emb *hashEmbedder) *search.Searcher {
	t.Helper()
	s, err := search.New(search.Config{
		Collection:  collection,
		DocLanguage: "en",
		Params:      config.DefaultSearchParams(),
		Embedder:    emb,
		Store:       ms,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func TestPipeline_IndexThenSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// Given: an ingested documentation corpus
	ctx := context.Background()
	chunks, ms, emb, _ := ingestCorpus(t, "spreadjs_en")
	assert.Equal(t, len(chunks), ms.count("spreadjs_en"))

	// When: searching with terms unique to one document
	s := newSearcher(t, "spreadjs_en", ms, emb)
	resp, err := s.Search(ctx, "addSpan merge cell range", 5, false)

	// Then: the merge document ranks first on the hybrid path
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, search.FusionRRF, resp.FusionMode)
	assert.Equal(t, "docs_features_merge-cells", resp.Results[0].DocID)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.False(t, resp.RerankUsed)
}

func TestPipeline_FetchReassemblesDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, ms, emb, _ := ingestCorpus(t, "spreadjs_en")
	s := newSearcher(t, "spreadjs_en", ms, emb)

	docChunks, err := s.GetDocChunks(ctx, "docs_features_merge-cells")
	require.NoError(t, err)
	require.NotEmpty(t, docChunks)

	var parts []string
	for i, c := range docChunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "doc", c.Metadata.Category)
		assert.Equal(t, "merge-cells", c.Metadata.FileName)
		parts = append(parts, c.Content)
	}
	joined := strings.Join(parts, "\n\n")
	assert.Contains(t, joined, "addSpan")
	assert.Contains(t, joined, "removeSpan")
}

func TestPipeline_CrossLanguageQueryUsesDenseOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, ms, emb, _ := ingestCorpus(t, "spreadjs_en")
	s := newSearcher(t, "spreadjs_en", ms, emb)

	// A Chinese query against an English collection skips the lexical leg.
	resp, err := s.Search(ctx, "如何合并单元格以及设置样式", 5, false)

	require.NoError(t, err)
	assert.Equal(t, search.FusionDenseOnly, resp.FusionMode)
	assert.Equal(t, "zh", resp.DetectedLang)
	assert.Equal(t, "en", resp.DocLanguage)
}

func TestPipeline_SanitizedContentAndProtectedBlocks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	chunks, _, _, _ := ingestCorpus(t, "spreadjs_en")

	code := "```js\n" +
		"workbook.addCustomFunction(buildFn(0));\n" +
		"workbook.addCustomFunction(buildFn(1));\n" +
		"workbook.addCustomFunction(buildFn(2));\n" +
		"workbook.addCustomFunction(buildFn(3));\n" +
		"workbook.addCustomFunction(buildFn(4));\n" +
		"workbook.addCustomFunction(buildFn(5));\n" +
		"workbook.addCustomFunction(buildFn(6));\n" +
		"workbook.addCustomFunction(buildFn(7));\n" +
		"workbook.addCustomFunction(buildFn(8));\n" +
		"```"

	perDoc := make(map[string]int)
	intact := false
	for _, c := range chunks {
		perDoc[c.DocID]++
		assert.NotContains(t, c.Content, "<span", "chunk %s carries HTML noise", c.ID)
		assert.NotContains(t, c.Content, "style=")
		if c.Content == code {
			intact = true
		}
	}
	assert.True(t, intact, "the oversized code block must survive as one chunk")

	// The emitted count per document is what every chunk's metadata claims.
	for _, c := range chunks {
		assert.Equal(t, perDoc[c.DocID], c.Meta.TotalChunks, "chunk %s", c.ID)
	}
	assert.Contains(t, perDoc, "docs_tutorials_custom-functions")
}

func TestPipeline_ReindexingIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	chunks, ms, _, ix := ingestCorpus(t, "spreadjs_en")
	first := ms.count("spreadjs_en")

	// The completed run removed its checkpoint, so this re-ingests all
	// chunks; ID-keyed upserts keep the point count stable.
	report, err := ix.Run(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), report.Succeeded)
	assert.Equal(t, first, ms.count("spreadjs_en"))
}

func TestPipeline_ForceReindex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	chunks, ms, _, ix := ingestCorpus(t, "spreadjs_en")

	// Force drops the collection and recreates it empty.
	require.NoError(t, ix.InitCollection(ctx, true))
	assert.Zero(t, ms.count("spreadjs_en"))

	// The previous run completed, so nothing is skipped on re-ingestion.
	report, err := ix.Run(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), report.Succeeded)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, len(chunks), ms.count("spreadjs_en"))
}
