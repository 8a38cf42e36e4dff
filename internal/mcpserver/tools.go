package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grapecity-cn/docsmcp/internal/logging"
	"github.com/grapecity-cn/docsmcp/internal/reqctx"
	"github.com/grapecity-cn/docsmcp/internal/search"
	"github.com/grapecity-cn/docsmcp/internal/telemetry"
)

// Tool names as registered on every session.
const (
	toolSearch     = "search"
	toolFetch      = "fetch"
	toolGuidelines = "get_code_guidelines"
)

// Limit bounds declared by the search tool schema.
const (
	minSearchLimit = 1
	maxSearchLimit = 20
)

// Advisories appended to tool results, steering the client through the
// search, fetch, guidelines workflow.
const (
	searchNextStep = "Determine if further queries are needed: if your next code will call APIs mentioned in these results and you are not certain of parameter order, types, or return values, fetch the full document or search again for that specific API."
	fetchNextStep  = "Full document retrieved. If unfamiliar class or method names appear, search for their usage before calling them."
)

// SearchInput is the declared schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural language search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, 1 to 20, defaults to the product's configured limit"`
}

// SearchOutput is the full search response plus a next-step advisory.
type SearchOutput struct {
	search.SearchResponse
	NextStep string `json:"next_step"`
}

// FetchInput is the declared schema for the fetch tool.
type FetchInput struct {
	DocID string `json:"doc_id" jsonschema:"document ID from search results"`
}

// FetchOutput carries one whole document reassembled from its chunks.
type FetchOutput struct {
	DocID       string                `json:"doc_id"`
	ChunkCount  int                   `json:"chunk_count"`
	FullContent string                `json:"full_content"`
	Metadata    search.ResultMetadata `json:"metadata"`
	NextStep    string                `json:"next_step"`
}

// GuidelinesInput is the empty schema for get_code_guidelines.
type GuidelinesInput struct{}

// Guideline is one code-generation guideline entry.
type Guideline struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// GuidelinesOutput maps guideline keys to entries. Note is set instead when
// the product ships none.
type GuidelinesOutput struct {
	Guidelines map[string]Guideline `json:"guidelines"`
	Note       string               `json:"note,omitempty"`
}

// ToolInfo names one registered tool for service manifests.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListTools reports the tools every session registers, in registration
// order.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: toolSearch, Description: s.searchDescription()},
		{Name: toolFetch, Description: s.fetchDescription()},
		{Name: toolGuidelines, Description: s.guidelinesDescription()},
	}
}

func (s *Server) searchDescription() string {
	desc := fmt.Sprintf("Search %s documentation. Returns relevant code examples, API docs and feature descriptions.\n\n"+
		"[IMPORTANT] Before calling any API or implementing features, always search to confirm: "+
		"1) Method signatures and parameters 2) Return types 3) Usage examples. "+
		"Do not rely on memorized API knowledge as documentation may have been updated.", s.describeProduct())
	if len(s.product.Resources) > 0 {
		desc += "\n\n[REQUIRED] Before generating code with script references or imports, " +
			"you MUST call get_code_guidelines to obtain correct reference paths."
	}
	return desc
}

func (s *Server) fetchDescription() string {
	return fmt.Sprintf("Fetch full document content by doc_id for %s. "+
		"Search results are summaries only - always fetch full context before implementing code.", s.describeProduct())
}

func (s *Server) guidelinesDescription() string {
	return fmt.Sprintf("Get code generation guidelines for %s, including CDN links and package references. "+
		"[REQUIRED] You MUST call this tool before generating any code with script tags or import statements. "+
		"Failure to do so will result in incorrect reference links.", s.describeProduct())
}

// registerTools declares the three tools on a session server.
func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        toolSearch,
		Description: s.searchDescription(),
	}, logged(s, toolSearch,
		func(in SearchInput) string { return in.Query },
		func(out SearchOutput) int { return len(out.Results) },
		s.handleSearch,
	))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        toolFetch,
		Description: s.fetchDescription(),
	}, logged(s, toolFetch,
		func(in FetchInput) string { return in.DocID },
		func(out FetchOutput) int { return out.ChunkCount },
		s.handleFetch,
	))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        toolGuidelines,
		Description: s.guidelinesDescription(),
	}, logged(s, toolGuidelines,
		func(GuidelinesInput) string { return "" },
		func(out GuidelinesOutput) int { return len(out.Guidelines) },
		s.handleGuidelines,
	))
}

// toolHandler is the typed handler shape the SDK registers.
type toolHandler[In, Out any] = mcp.ToolHandlerFor[In, Out]

// logged wraps a tool handler so every invocation, success or failure,
// emits exactly one access log line carrying the ambient request identity
// and lands in the product's call metrics.
func logged[In, Out any](
	s *Server,
	tool string,
	query func(In) string,
	count func(Out) int,
	h toolHandler[In, Out],
) toolHandler[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		res, out, err := h(ctx, req, in)
		elapsed := time.Since(start)

		q := query(in)
		rc, _ := reqctx.From(ctx)
		entry := logging.AccessEntry{
			RequestID:  rc.RequestID,
			SessionID:  rc.SessionID,
			ProductID:  s.product.ID,
			ClientInfo: rc.ClientInfo,
			ClientIP:   rc.ClientIP,
			Tool:       tool,
			Query:      q,
			DurationMS: elapsed.Milliseconds(),
		}
		event := telemetry.CallEvent{
			Tool:    tool,
			Query:   q,
			Latency: elapsed,
		}
		if err != nil {
			entry.Err = err.Error()
			event.Failed = true
		} else {
			entry.ResultCount = count(out)
			event.ResultCount = entry.ResultCount
		}
		logging.LogAccess(ctx, s.logger, entry)
		s.metrics.Record(event)

		return res, out, err
	}
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, SearchOutput{}, fmt.Errorf("query must be a non-empty string")
	}
	limit := in.Limit
	if limit == 0 {
		limit = s.product.Search.DefaultLimit
	}
	if limit < minSearchLimit || limit > maxSearchLimit {
		return nil, SearchOutput{}, fmt.Errorf("limit must be between %d and %d, got %d", minSearchLimit, maxSearchLimit, limit)
	}

	resp, err := s.searcher.Search(ctx, in.Query, limit, true)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{SearchResponse: *resp, NextStep: searchNextStep}
	return textResult(out), out, nil
}

func (s *Server) handleFetch(ctx context.Context, _ *mcp.CallToolRequest, in FetchInput) (*mcp.CallToolResult, FetchOutput, error) {
	docID := strings.TrimSpace(in.DocID)
	if docID == "" {
		return nil, FetchOutput{}, fmt.Errorf("doc_id must be a non-empty string")
	}

	chunks, err := s.searcher.GetDocChunks(ctx, docID)
	if err != nil {
		return nil, FetchOutput{}, err
	}
	if len(chunks) == 0 {
		return nil, FetchOutput{}, fmt.Errorf("document %s not found", docID)
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}

	out := FetchOutput{
		DocID:       docID,
		ChunkCount:  len(chunks),
		FullContent: strings.Join(parts, "\n\n"),
		Metadata:    chunks[0].Metadata,
		NextStep:    fetchNextStep,
	}
	return textResult(out), out, nil
}

func (s *Server) handleGuidelines(_ context.Context, _ *mcp.CallToolRequest, _ GuidelinesInput) (*mcp.CallToolResult, GuidelinesOutput, error) {
	out := GuidelinesOutput{Guidelines: make(map[string]Guideline, len(s.product.Resources))}
	for key, res := range s.product.Resources {
		out.Guidelines[key] = Guideline{
			Name:        res.Name,
			Description: res.Description,
			Content:     res.Content,
		}
	}
	if len(out.Guidelines) == 0 {
		out.Note = fmt.Sprintf("Product %s has no code guidelines configured", s.product.ID)
	}
	return textResult(out), out, nil
}

// textResult mirrors the structured output as JSON text content, which is
// what clients without structured-content support read.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
