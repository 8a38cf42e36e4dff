// Package search runs the retrieval pipeline: language detection, query
// embedding, hybrid or dense-only candidate retrieval, optional
// reranking, and result shaping.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/store"
	"github.com/grapecity-cn/docsmcp/internal/voyage"
)

// docChunkCap bounds GetDocChunks; no indexed document comes close.
const docChunkCap = 100

const previewRunes = 200

// Embedder produces the query vector. Implemented by voyage.Client.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Reranker rescoring is optional; a nil Reranker disables step 4 of the
// pipeline. Implemented by voyage.Client.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]voyage.RerankResult, error)
}

// Store serves candidates. Implemented by store.Client.
type Store interface {
	QueryHybrid(ctx context.Context, name string, dense []float32, queryText string, prefetchLimit, limit, rrfK int) ([]store.ScoredChunk, error)
	QueryDense(ctx context.Context, name string, dense []float32, limit int, scoreThreshold float32) ([]store.ScoredChunk, error)
	ScrollByDocID(ctx context.Context, name, docID string, limit int) ([]store.ScoredChunk, error)
}

// Config wires a Searcher for one (product, language) collection.
type Config struct {
	Collection  string
	DocLanguage string
	Params      config.SearchParams

	Embedder Embedder
	Store    Store
	Reranker Reranker
	Logger   *slog.Logger
}

// Searcher answers queries against one collection. Safe for concurrent
// use; all fields are set at construction.
type Searcher struct {
	collection  string
	docLanguage string
	params      config.SearchParams
	embedder    Embedder
	store       Store
	reranker    Reranker
	logger      *slog.Logger
}

func New(cfg Config) (*Searcher, error) {
	if cfg.Collection == "" {
		return nil, errors.NewConfigError("searcher requires a collection name", nil)
	}
	if cfg.Embedder == nil || cfg.Store == nil {
		return nil, errors.NewConfigError("searcher requires an embedder and a store", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Searcher{
		collection:  cfg.Collection,
		docLanguage: NormalizeLangCode(cfg.DocLanguage),
		params:      cfg.Params,
		embedder:    cfg.Embedder,
		store:       cfg.Store,
		reranker:    cfg.Reranker,
		logger:      cfg.Logger,
	}, nil
}

// Search runs the full pipeline. A non-positive limit defaults to the
// configured rerank_top_k. When the detected query language matches the
// collection's document language the store fuses dense and BM25 legs;
// otherwise only the dense leg runs, filtered by the score threshold.
// Rerank failures never fail the search; the fusion order is returned.
// RerankUsed reports whether the rerank path was enabled for the query,
// so it stays true when rescoring itself failed.
func (s *Searcher) Search(ctx context.Context, query string, limit int, useRerank bool) (*SearchResponse, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.params.RerankTopK
	}

	detected := s.queryLanguage(query)

	dense, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.NewSearchError("embed query", err)
	}

	var (
		fusionMode string
		candidates []store.ScoredChunk
	)
	if detected == s.docLanguage {
		fusionMode = FusionRRF
		candidates, err = s.store.QueryHybrid(ctx, s.collection, dense, query,
			s.params.PrefetchLimit, s.params.PrefetchLimit, s.params.RRFK)
	} else {
		fusionMode = FusionDenseOnly
		candidates, err = s.store.QueryDense(ctx, s.collection, dense,
			s.params.PrefetchLimit, s.params.DenseScoreThreshold)
	}
	if err != nil {
		return nil, errors.NewSearchError("query candidates", err)
	}

	rerankUsed := useRerank && s.reranker != nil
	if rerankUsed && len(candidates) > 0 {
		reranked, rerr := s.rerank(ctx, query, candidates)
		if rerr != nil {
			s.logger.Warn("rerank failed, keeping fusion order",
				"collection", s.collection, "error", rerr)
		} else {
			candidates = reranked
		}
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]SearchResult, 0, len(candidates))
	for i, c := range candidates {
		results = append(results, SearchResult{
			Rank:           i + 1,
			DocID:          c.DocID,
			ChunkID:        c.ChunkID,
			Score:          float64(c.Score),
			Content:        c.Content,
			ContentPreview: preview(c.Content),
			Metadata:       resultMetadata(c.Payload),
		})
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	return &SearchResponse{
		Query:        query,
		Results:      results,
		SearchTimeMS: math.Round(elapsed*100) / 100,
		RerankUsed:   rerankUsed,
		FusionMode:   fusionMode,
		DetectedLang: detected,
		DocLanguage:  s.docLanguage,
	}, nil
}

// GetDocChunks returns every chunk of one document ordered by chunk
// index, capped at docChunkCap.
func (s *Searcher) GetDocChunks(ctx context.Context, docID string) ([]DocChunk, error) {
	points, err := s.store.ScrollByDocID(ctx, s.collection, docID, docChunkCap)
	if err != nil {
		return nil, errors.NewSearchError("load document chunks", err)
	}

	chunks := make([]DocChunk, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, DocChunk{
			ChunkID:    p.ChunkID,
			ChunkIndex: p.ChunkIndex,
			Content:    p.Content,
			Metadata:   resultMetadata(p.Payload),
		})
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

// queryLanguage detects the query's language. Queries shorter than the
// configured minimum, and queries the detector cannot place, count as the
// document language, keeping short keyword lookups on the hybrid path.
func (s *Searcher) queryLanguage(query string) string {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < s.params.MinDetectLength {
		return s.docLanguage
	}
	code, ok := DetectLanguage(query)
	if !ok {
		return s.docLanguage
	}
	return code
}

func (s *Searcher) rerank(ctx context.Context, query string, candidates []store.ScoredChunk) ([]store.ScoredChunk, error) {
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}
	results, err := s.reranker.Rerank(ctx, query, docs, s.params.RerankTopK)
	if err != nil {
		return nil, err
	}

	out := make([]store.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		c := candidates[r.Index]
		c.Score = float32(r.RelevanceScore)
		out = append(out, c)
	}
	return out, nil
}

func resultMetadata(p store.Payload) ResultMetadata {
	return ResultMetadata{
		Category:      p.Category,
		FileName:      p.FileName,
		PathHierarchy: p.PathHierarchy,
		SectionPath:   p.SectionPath,
	}
}

// preview returns the first previewRunes characters of content, marking
// truncation.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes]) + "..."
}
