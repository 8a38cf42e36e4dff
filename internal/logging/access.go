package logging

import (
	"context"
	"log/slog"
)

// AccessEntry is one access-log record for a tool invocation. Every tool
// call emits exactly one of these, success or failure.
type AccessEntry struct {
	RequestID   string
	SessionID   string
	ProductID   string
	ClientInfo  string
	ClientIP    string
	Tool        string
	Query       string
	DurationMS  int64
	ResultCount int
	Err         string
}

// LogAccess emits the entry as a single structured line with type="access".
// Failures stay at info level; the error is a field, not a separate record.
func LogAccess(ctx context.Context, logger *slog.Logger, e AccessEntry) {
	attrs := []slog.Attr{
		slog.String("type", "access"),
		slog.String("request_id", e.RequestID),
		slog.String("session_id", e.SessionID),
		slog.String("product", e.ProductID),
		slog.String("client_info", e.ClientInfo),
		slog.String("client_ip", e.ClientIP),
		slog.String("tool", e.Tool),
		slog.String("query", e.Query),
		slog.Int64("duration_ms", e.DurationMS),
		slog.Int("result_count", e.ResultCount),
	}
	if e.Err != "" {
		attrs = append(attrs, slog.String("error", e.Err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "tool_call", attrs...)
}
