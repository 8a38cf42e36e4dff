package search

// Fusion modes reported on every response.
const (
	FusionRRF       = "rrf"
	FusionDenseOnly = "dense_only"
)

// ResultMetadata is the chunk metadata echoed on search results and
// document chunks. The document outline and chunk count stay out of
// search responses; fetch exposes the whole document anyway.
type ResultMetadata struct {
	Category      string   `json:"category"`
	FileName      string   `json:"file_name"`
	PathHierarchy []string `json:"path_hierarchy"`
	SectionPath   []string `json:"section_path,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Rank           int            `json:"rank"`
	DocID          string         `json:"doc_id"`
	ChunkID        string         `json:"chunk_id"`
	Score          float64        `json:"score"`
	Content        string         `json:"content"`
	ContentPreview string         `json:"content_preview"`
	Metadata       ResultMetadata `json:"metadata"`
}

// SearchResponse is the full answer to one query.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	SearchTimeMS float64        `json:"search_time_ms"`
	RerankUsed   bool           `json:"rerank_used"`
	FusionMode   string         `json:"fusion_mode"`
	DetectedLang string         `json:"detected_lang"`
	DocLanguage  string         `json:"doc_language"`
}

// DocChunk is one chunk of a document as returned by GetDocChunks,
// ordered by ChunkIndex.
type DocChunk struct {
	ChunkID    string         `json:"chunk_id"`
	ChunkIndex int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Metadata   ResultMetadata `json:"metadata"`
}
