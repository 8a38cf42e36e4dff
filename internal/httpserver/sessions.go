package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grapecity-cn/docsmcp/internal/mcpserver"
	"github.com/grapecity-cn/docsmcp/internal/reqctx"
)

// sessionHeader correlates MCP requests to their session.
const sessionHeader = "Mcp-Session-Id"

// Idle sessions are evicted by the sweeper. The SDK transport carries the
// same timeout so its side of the session state expires with ours.
const (
	sessionTTL    = 30 * time.Minute
	sweepInterval = 5 * time.Minute
)

// JSON-RPC error codes on the session boundary. -32001 is a local
// extension for stale sessions.
const (
	codeInvalidRequest  = -32600
	codeSessionNotFound = -32001
)

// sessionEntry tracks one live client session.
type sessionEntry struct {
	clientInfo   string
	createdAt    time.Time
	lastActivity time.Time
}

// endpoint serves /mcp/{product}: a session registry gating the SDK's
// streamable HTTP transport. Requests with a known session refresh it and
// pass through; everything else is rejected before reaching the transport,
// except an initialize, which opens a new session.
type endpoint struct {
	productID string
	handler   http.Handler
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

// newEndpoint builds the MCP endpoint for one product server. Each new
// session gets a fresh protocol server; heavy state stays shared behind it.
func newEndpoint(ps *mcpserver.Server, logger *slog.Logger) *endpoint {
	handler := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return ps.NewSession() },
		&mcp.StreamableHTTPOptions{
			SessionTimeout: sessionTTL,
			Logger:         logger,
		},
	)
	return &endpoint{
		productID: ps.Product().ID,
		handler:   handler,
		logger:    logger,
		sessions:  make(map[string]*sessionEntry),
		now:       time.Now,
	}
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)

	if sessionID != "" {
		entry, ok := e.touch(sessionID)
		if !ok {
			writeRPCError(w, http.StatusNotFound, codeSessionNotFound,
				"Session not found. Client must re-initialize.")
			return
		}
		r = r.WithContext(reqctx.With(r.Context(), reqctx.RequestContext{
			RequestID:  reqctx.NewRequestID(),
			SessionID:  sessionID,
			ProductID:  e.productID,
			ClientInfo: entry.clientInfo,
			ClientIP:   clientIP(r),
		}))
		e.handler.ServeHTTP(w, r)
		if r.Method == http.MethodDelete {
			e.remove(sessionID)
			e.logger.Info("session closed",
				slog.String("product", e.productID),
				slog.String("session_id", sessionID))
		}
		return
	}

	clientInfo, ok := sniffInitialize(r)
	if !ok {
		writeRPCError(w, http.StatusBadRequest, codeInvalidRequest,
			"Missing session ID or not an initialize request.")
		return
	}

	r = r.WithContext(reqctx.With(r.Context(), reqctx.RequestContext{
		RequestID:  reqctx.NewRequestID(),
		ProductID:  e.productID,
		ClientInfo: clientInfo,
		ClientIP:   clientIP(r),
	}))
	e.handler.ServeHTTP(w, r)

	// The transport mints the session id; the header map stays readable
	// after the response is written.
	if newID := w.Header().Get(sessionHeader); newID != "" {
		e.register(newID, clientInfo)
		e.logger.Info("session opened",
			slog.String("product", e.productID),
			slog.String("session_id", newID),
			slog.String("client_info", clientInfo))
	}
}

// initializeProbe is the slice of an initialize request the registry needs:
// the method and the client's self-reported identity.
type initializeProbe struct {
	Method string `json:"method"`
	Params struct {
		ClientInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	} `json:"params"`
}

// sniffInitialize reports whether the request is an initialize POST and
// returns the client's self-identification. The body is restored for the
// downstream transport.
func sniffInitialize(r *http.Request) (string, bool) {
	if r.Method != http.MethodPost || r.Body == nil {
		return "", false
	}
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var probe initializeProbe
	if err := json.Unmarshal(body, &probe); err != nil || probe.Method != "initialize" {
		return "", false
	}

	ci := probe.Params.ClientInfo.Name
	if ci != "" && probe.Params.ClientInfo.Version != "" {
		ci += "/" + probe.Params.ClientInfo.Version
	}
	return ci, true
}

// touch refreshes a session's activity clock, returning a copy of the entry.
func (e *endpoint) touch(id string) (sessionEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.sessions[id]
	if !ok {
		return sessionEntry{}, false
	}
	entry.lastActivity = e.now()
	return *entry, true
}

func (e *endpoint) register(id, clientInfo string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.sessions[id] = &sessionEntry{clientInfo: clientInfo, createdAt: now, lastActivity: now}
}

func (e *endpoint) remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, id)
}

// evictIdle drops sessions idle past the TTL and returns how many went.
func (e *endpoint) evictIdle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-sessionTTL)
	evicted := 0
	for id, entry := range e.sessions {
		if entry.lastActivity.Before(cutoff) {
			delete(e.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (e *endpoint) sessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// rpcError is the JSON-RPC error envelope written on the session boundary.
// The request id is unknowable here, so it is null per the JSON-RPC spec.
type rpcError struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      any          `json:"id"`
	Error   rpcErrorBody `json:"error"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcError{
		JSONRPC: "2.0",
		Error:   rpcErrorBody{Code: code, Message: message},
	})
}

// clientIP strips the port RemoteAddr carries when no proxy header
// rewrote it. RealIP middleware leaves a bare IP, which passes through.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
