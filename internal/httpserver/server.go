// Package httpserver mounts every product's MCP endpoint plus the REST
// and operational routes on one chi router, and owns session lifecycle
// around the SDK's streamable transport.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grapecity-cn/docsmcp/internal/errors"
	"github.com/grapecity-cn/docsmcp/internal/mcpserver"
)

const shutdownTimeout = 5 * time.Second

// Config wires the HTTP server.
type Config struct {
	Host     string
	Port     int
	Products []*mcpserver.Server
	Logger   *slog.Logger
}

// mount pairs a product server with its session-gated MCP endpoint.
type mount struct {
	server   *mcpserver.Server
	endpoint *endpoint
}

// Server is the process's single HTTP front.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	mounts  []mount
	httpSrv *http.Server
}

// New validates the wiring and builds the router.
func New(cfg Config) (*Server, error) {
	if len(cfg.Products) == 0 {
		return nil, errors.NewConfigError("http server requires at least one product", nil)
	}
	if cfg.Port <= 0 {
		return nil, errors.NewConfigError("http server requires a port", nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: cfg, logger: logger}
	for _, ps := range cfg.Products {
		s.mounts = append(s.mounts, mount{server: ps, endpoint: newEndpoint(ps, logger)})
	}
	s.httpSrv = &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: s.routes(),
	}
	return s, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests. The
// idle-session sweeper runs alongside and never delays shutdown.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.sweep()
			}
		}
	})

	return g.Wait()
}

// sweep evicts idle sessions across all product endpoints.
func (s *Server) sweep() {
	for _, m := range s.mounts {
		if n := m.endpoint.evictIdle(); n > 0 {
			s.logger.Info("evicted idle sessions",
				slog.String("product", m.endpoint.productID),
				slog.Int("count", n))
		}
	}
}
