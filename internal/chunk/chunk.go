// Package chunk splits loaded documents into indexable chunks. Three
// strategies exist, selected per product: a generic Markdown splitter and
// two API-reference splitters tuned for TypeDoc and JavaDoc output. All
// three share the size-bounded, fence-protecting primitives in base.go.
package chunk

import (
	"fmt"
	"strings"

	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/loader"
)

// Strategy names accepted by New.
const (
	StrategyMarkdown = "markdown"
	StrategyTypeDoc  = "typedoc"
	StrategyJavaDoc  = "javadoc"
)

// Size defaults. Sizes are measured in bytes; cuts never land inside a
// UTF-8 sequence.
const (
	DefaultChunkSize    = 3000
	DefaultMinChunkSize = 100
)

// Metadata travels with every chunk into the store payload.
type Metadata struct {
	Category      string
	FileName      string
	PathHierarchy []string
	// SectionPath is the header trail leading to this chunk, outermost
	// first, populated by the header-based strategies.
	SectionPath []string
	// DocTOC is the document outline, identical on every chunk of a
	// document. Back-filled after chunking.
	DocTOC string
	// TotalChunks is the number of chunks the document produced.
	// Back-filled after chunking.
	TotalChunks int
}

// Chunk is one indexable slice of a document.
type Chunk struct {
	// ID is "{docID}_chunk{N}".
	ID      string
	DocID   string
	Index   int
	Content string
	Meta    Metadata
}

// Options sets the size limits shared by all strategies.
type Options struct {
	ChunkSize    int
	MinChunkSize int
}

// strategy turns one document into ordered content pieces. The Chunker
// driver owns filtering, ID assignment, and metadata back-fill.
type strategy interface {
	split(doc loader.Document) []piece
}

// piece is a strategy's raw output: content plus its header trail.
type piece struct {
	content     string
	sectionPath []string
}

// Chunker applies one strategy with fixed size limits.
type Chunker struct {
	opts     Options
	strategy strategy
}

// New creates a chunker for the named strategy.
func New(strategyName string, opts Options) (*Chunker, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultMinChunkSize
	}
	s := splitter{chunkSize: opts.ChunkSize, minChunkSize: opts.MinChunkSize}

	var st strategy
	switch strategyName {
	case StrategyMarkdown:
		st = &markdownStrategy{splitter: s}
	case StrategyTypeDoc:
		st = &typedocStrategy{splitter: s}
	case StrategyJavaDoc:
		st = &javadocStrategy{splitter: s}
	default:
		return nil, errors.NewConfigErrorf("unknown chunker strategy %q", strategyName)
	}
	return &Chunker{opts: opts, strategy: st}, nil
}

// ChunkDocument splits one document. Whitespace-only pieces are dropped;
// pieces shorter than the minimum are dropped unless the document produced
// only a single piece. Indexes are monotone with no gaps, and every chunk
// carries the document outline and the final chunk count.
func (c *Chunker) ChunkDocument(doc loader.Document) []Chunk {
	pieces := c.strategy.split(doc)

	nonEmpty := pieces[:0]
	for _, p := range pieces {
		if trimmed := strings.TrimSpace(p.content); trimmed != "" {
			p.content = trimmed
			nonEmpty = append(nonEmpty, p)
		}
	}

	kept := nonEmpty
	if len(nonEmpty) > 1 {
		kept = nonEmpty[:0]
		for _, p := range nonEmpty {
			if len(p.content) >= c.opts.MinChunkSize {
				kept = append(kept, p)
			}
		}
	}

	toc := ExtractTOC(doc.Content)
	chunks := make([]Chunk, 0, len(kept))
	for i, p := range kept {
		chunks = append(chunks, Chunk{
			ID:      fmt.Sprintf("%s_chunk%d", doc.ID, i),
			DocID:   doc.ID,
			Index:   i,
			Content: p.content,
			Meta: Metadata{
				Category:      doc.Category,
				FileName:      doc.FileName,
				PathHierarchy: doc.PathHierarchy,
				SectionPath:   p.sectionPath,
				DocTOC:        toc,
				TotalChunks:   len(kept),
			},
		})
	}
	return chunks
}

// ChunkDocuments splits documents in order, concatenating their chunks.
func (c *Chunker) ChunkDocuments(docs []loader.Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.ChunkDocument(doc)...)
	}
	return chunks
}
