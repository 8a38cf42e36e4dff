package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/grapecity-cn/docsmcp/internal/logging"
	"github.com/grapecity-cn/docsmcp/internal/mcpserver"
	"github.com/grapecity-cn/docsmcp/internal/reqctx"
	"github.com/grapecity-cn/docsmcp/internal/telemetry"
	"github.com/grapecity-cn/docsmcp/pkg/version"
)

// REST search accepts the same limit range the MCP tool declares.
const (
	minRESTLimit = 1
	maxRESTLimit = 20
)

// routes assembles the chi router: operational endpoints, then one MCP
// mount and one REST search route per product.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsAllowAll)

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/", s.handleRoot)

	for _, m := range s.mounts {
		p := m.server.Product()
		r.Handle("/mcp/"+p.ID, m.endpoint)
		r.Post("/api/"+p.ID+"/search", s.handleRESTSearch(m.server))
	}

	return r
}

// corsAllowAll is permissive CORS for browser-based MCP clients. The
// session header must be exposed or clients cannot correlate sessions.
func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// healthProduct is one product's row in the health response.
type healthProduct struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Lang       string `json:"lang"`
	Collection string `json:"collection"`
	Endpoint   string `json:"endpoint"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Products  []healthProduct `json:"products"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Version:   version.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, m := range s.mounts {
		p := m.server.Product()
		resp.Products = append(resp.Products, healthProduct{
			ID:         p.ID,
			Name:       p.Name,
			Lang:       p.Lang,
			Collection: p.Collection,
			Endpoint:   "/mcp/" + p.ID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Version   string                         `json:"version"`
	Timestamp string                         `json:"timestamp"`
	Products  map[string]*telemetry.Snapshot `json:"products"`
}

// handleStats reports per-product call metrics since process start.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Version:   version.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Products:  make(map[string]*telemetry.Snapshot, len(s.mounts)),
	}
	for _, m := range s.mounts {
		resp.Products[m.server.Product().ID] = m.server.Metrics().Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

// restSearchRequest is the playground-facing search body. use_rerank
// defaults to on, matching the MCP tool.
type restSearchRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
	UseRerank *bool  `json:"use_rerank"`
}

// handleRESTSearch serves plain JSON search, no session required.
func (s *Server) handleRESTSearch(ps *mcpserver.Server) http.HandlerFunc {
	product := ps.Product()
	searcher := ps.Searcher()

	return func(w http.ResponseWriter, r *http.Request) {
		var req restSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeJSONError(w, http.StatusBadRequest, "query must be a non-empty string")
			return
		}
		limit := req.Limit
		if limit == 0 {
			limit = product.Search.DefaultLimit
		}
		if limit < minRESTLimit || limit > maxRESTLimit {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 20")
			return
		}
		useRerank := true
		if req.UseRerank != nil {
			useRerank = *req.UseRerank
		}

		rc := reqctx.RequestContext{
			RequestID: reqctx.NewRequestID(),
			ProductID: product.ID,
			ClientIP:  clientIP(r),
		}
		ctx := reqctx.With(r.Context(), rc)

		start := time.Now()
		resp, err := searcher.Search(ctx, req.Query, limit, useRerank)
		elapsed := time.Since(start)

		entry := logging.AccessEntry{
			RequestID:  rc.RequestID,
			ProductID:  product.ID,
			ClientIP:   rc.ClientIP,
			Tool:       "rest_search",
			Query:      req.Query,
			DurationMS: elapsed.Milliseconds(),
		}
		event := telemetry.CallEvent{
			Tool:    "rest_search",
			Query:   req.Query,
			Latency: elapsed,
		}
		if err != nil {
			entry.Err = err.Error()
			event.Failed = true
		} else {
			entry.ResultCount = len(resp.Results)
			event.ResultCount = entry.ResultCount
		}
		logging.LogAccess(ctx, s.logger, entry)
		ps.Metrics().Record(event)

		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
