// Package errors provides the structured error types used at docsmcp's
// component boundaries. Five kinds are distinguished: configuration,
// rate limiting, upstream API, search, and ingestion. Each carries enough
// context for the caller to decide between retrying, surfacing, or aborting.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error at the component boundary.
type Kind string

const (
	// KindConfig marks missing or invalid environment/YAML configuration.
	// Fatal at startup.
	KindConfig Kind = "config"

	// KindRateLimit marks a rate-limit violation. Carries a retry-after
	// duration. Retryable inside the embedder; surfaced to the operator
	// by the indexer.
	KindRateLimit Kind = "rate_limit"

	// KindAPI marks an upstream HTTP failure (embed/rerank/vector store).
	// Carries the status code. Retried for 5xx, network errors, and 429.
	KindAPI Kind = "api"

	// KindSearch marks a search pipeline failure. Surfaced to the client
	// as a JSON-RPC internal error.
	KindSearch Kind = "search"

	// KindIngestion marks a per-batch indexing failure. Aborts the run;
	// the checkpoint is left intact for resumption.
	KindIngestion Kind = "ingestion"
)

// Error is the structured error type for docsmcp.
type Error struct {
	// Kind is the error classification.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Status is the upstream HTTP status code for KindAPI, 0 otherwise.
	Status int

	// RetryAfter is how long the caller should wait before retrying.
	// Populated for KindRateLimit.
	RetryAfter time.Duration

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same kind, enabling errors.Is with a kind probe.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// NewConfigError creates a configuration error. The message must name the
// variable or field that triggered the failure.
func NewConfigError(message string, cause error) *Error {
	return &Error{Kind: KindConfig, Message: message, Cause: cause}
}

// NewConfigErrorf creates a configuration error with a formatted message.
func NewConfigErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// NewRateLimitError creates a rate-limit error carrying the wait duration.
func NewRateLimitError(message string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Message:    message,
		RetryAfter: retryAfter,
		Retryable:  true,
	}
}

// NewAPIError creates an upstream API error. Retryability follows the
// propagation policy: 429 and 5xx are transient, other statuses are not.
// A zero status means a transport-level failure, which is retryable.
func NewAPIError(message string, status int, cause error) *Error {
	return &Error{
		Kind:      KindAPI,
		Message:   message,
		Status:    status,
		Retryable: status == 0 || status == 429 || status >= 500,
		Cause:     cause,
	}
}

// NewSearchError creates a search pipeline error.
func NewSearchError(message string, cause error) *Error {
	return &Error{Kind: KindSearch, Message: message, Cause: cause}
}

// NewIngestionError creates a per-batch ingestion error.
func NewIngestionError(message string, cause error) *Error {
	return &Error{Kind: KindIngestion, Message: message, Cause: cause}
}

// NewIngestionErrorf creates an ingestion error with a formatted message.
func NewIngestionErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindIngestion, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain. Returns "" when the chain
// contains no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether the error chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the error chain contains a retryable *Error.
// Errors outside the chain default to non-retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// RetryAfterOf extracts the retry-after duration from a rate-limit error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit {
		return e.RetryAfter, true
	}
	return 0, false
}

// StatusOf extracts the upstream HTTP status from an API error.
// Returns 0 when the chain carries none.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
