// Package reqctx carries per-request identity through tool execution.
//
// The HTTP layer stamps a RequestContext into the request context before
// dispatching to the MCP transport; tool handlers and the access logger
// read it back without threading it through handler signatures.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// RequestContext identifies one inbound request.
type RequestContext struct {
	RequestID  string
	SessionID  string
	ProductID  string
	ClientInfo string
	ClientIP   string
}

type ctxKey struct{}

// With returns a context carrying rc.
func With(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From extracts the RequestContext. The zero value is returned when the
// context carries none, so callers can log fields unconditionally.
func From(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(RequestContext)
	return rc, ok
}

// NewRequestID generates a short unique identifier for request tracking.
func NewRequestID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
