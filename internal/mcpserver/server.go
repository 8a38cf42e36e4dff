// Package mcpserver assembles MCP protocol servers for a product.
//
// One Server exists per product for the lifetime of the process; the HTTP
// transport asks it for a fresh *mcp.Server whenever a client opens a new
// session, so per-session protocol state never leaks between clients.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/search"
	"github.com/grapecity-cn/docsmcp/internal/telemetry"
	"github.com/grapecity-cn/docsmcp/pkg/version"
)

// Searcher is the retrieval surface the tools call into.
// *search.Searcher satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, useRerank bool) (*search.SearchResponse, error)
	GetDocChunks(ctx context.Context, docID string) ([]search.DocChunk, error)
}

// Config wires a product server.
type Config struct {
	Product  *config.Product
	Searcher Searcher
	Logger   *slog.Logger
}

// Server builds per-session protocol servers for one product. Sessions share
// the searcher and the metrics collector; everything else is per-session.
type Server struct {
	product  *config.Product
	searcher Searcher
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// New validates the wiring and returns a product server.
func New(cfg Config) (*Server, error) {
	if cfg.Product == nil {
		return nil, errors.NewConfigError("mcp server requires a product", nil)
	}
	if cfg.Searcher == nil {
		return nil, errors.NewConfigError("mcp server requires a searcher", nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		product:  cfg.Product,
		searcher: cfg.Searcher,
		metrics:  telemetry.New(),
		logger:   logger,
	}, nil
}

// Product returns the product this server serves.
func (s *Server) Product() *config.Product {
	return s.product
}

// Searcher returns the retrieval surface, shared with the REST route.
func (s *Server) Searcher() Searcher {
	return s.searcher
}

// Metrics returns the product's call metrics collector.
func (s *Server) Metrics() *telemetry.Metrics {
	return s.metrics
}

// NewSession constructs a fresh protocol server carrying the product
// instructions, the three tools, and the guideline resources. The
// streamable transport calls this once per initialize.
func (s *Server) NewSession() *mcp.Server {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docsmcp",
			Title:   s.product.Name + " Documentation",
			Version: version.Version,
		},
		&mcp.ServerOptions{
			Instructions: s.instructions(),
			Logger:       s.logger,
		},
	)
	s.registerTools(srv)
	s.registerResources(srv)
	return srv
}
