package store

import (
	"github.com/qdrant/go-client/qdrant"
)

// Payload is the flat payload stored with every point and carried back on
// every query hit.
type Payload struct {
	ChunkID       string   `json:"chunk_id"`
	DocID         string   `json:"doc_id"`
	ChunkIndex    int      `json:"chunk_index"`
	Content       string   `json:"content"`
	Category      string   `json:"category"`
	FileName      string   `json:"file_name"`
	PathHierarchy []string `json:"path_hierarchy"`
	SectionPath   []string `json:"section_path"`
	DocTOC        string   `json:"doc_toc"`
	TotalChunks   int      `json:"total_chunks"`
}

// Point is one chunk staged for upsert: the payload plus its dense vector.
// The sparse side is computed server-side from Content.
type Point struct {
	Payload
	Dense []float32
}

// ScoredChunk is one query hit.
type ScoredChunk struct {
	Payload
	Score float32 `json:"score"`
}

func payloadValues(p Payload) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		"chunk_id":       p.ChunkID,
		"doc_id":         p.DocID,
		"chunk_index":    p.ChunkIndex,
		"content":        p.Content,
		"category":       p.Category,
		"file_name":      p.FileName,
		"path_hierarchy": anySlice(p.PathHierarchy),
		"section_path":   anySlice(p.SectionPath),
		"doc_toc":        p.DocTOC,
		"total_chunks":   p.TotalChunks,
	})
}

func chunkFromPayload(values map[string]*qdrant.Value, score float32) ScoredChunk {
	var c ScoredChunk
	c.Score = score
	c.ChunkID = values["chunk_id"].GetStringValue()
	c.DocID = values["doc_id"].GetStringValue()
	c.ChunkIndex = int(values["chunk_index"].GetIntegerValue())
	c.Content = values["content"].GetStringValue()
	c.Category = values["category"].GetStringValue()
	c.FileName = values["file_name"].GetStringValue()
	c.PathHierarchy = stringSlice(values["path_hierarchy"])
	c.SectionPath = stringSlice(values["section_path"])
	c.DocTOC = values["doc_toc"].GetStringValue()
	c.TotalChunks = int(values["total_chunks"].GetIntegerValue())
	return c
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func stringSlice(v *qdrant.Value) []string {
	items := v.GetListValue().GetValues()
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.GetStringValue())
	}
	return out
}
