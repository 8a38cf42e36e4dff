// Package telemetry collects per-product tool call metrics for search tuning.
// All data stays in process memory - nothing is reported externally.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket. Buckets are sized for
// retrieval round trips: a call spans an embedding request, a store query,
// and usually a rerank request.
type LatencyBucket string

const (
	BucketP100  LatencyBucket = "p100"  // <100ms
	BucketP250  LatencyBucket = "p250"  // 100-250ms
	BucketP500  LatencyBucket = "p500"  // 250-500ms
	BucketP1000 LatencyBucket = "p1000" // 500-1000ms
	BucketP2000 LatencyBucket = "p2000" // >=1000ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 100:
		return BucketP100
	case ms < 250:
		return BucketP250
	case ms < 500:
		return BucketP500
	case ms < 1000:
		return BucketP1000
	default:
		return BucketP2000
	}
}

// =============================================================================
// Call Event
// =============================================================================

// CallEvent represents a single tool call for metrics recording.
type CallEvent struct {
	Tool        string
	Query       string
	ResultCount int
	Latency     time.Duration
	Failed      bool
}

// IsZeroResult returns true if this call succeeded but found nothing.
func (e CallEvent) IsZeroResult() bool {
	return !e.Failed && e.ResultCount == 0
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms extracts searchable terms from a query string.
// Terms are lowercased and filtered to minimum length 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	words := strings.Fields(query)
	var terms []string
	for _, w := range words {
		// Filter short terms
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// ToolStats aggregates the calls one tool received.
type ToolStats struct {
	Calls       int64 `json:"calls"`
	Errors      int64 `json:"errors"`
	ZeroResults int64 `json:"zero_results"`
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	Since               time.Time               `json:"since"`
	TotalCalls          int64                   `json:"total_calls"`
	TotalErrors         int64                   `json:"total_errors"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	Tools               map[string]ToolStats    `json:"tools"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
}

// ZeroResultPercentage returns the percentage of calls that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalCalls) * 100
}

// =============================================================================
// Metrics
// =============================================================================

// Config sizes the metrics collector.
type Config struct {
	TopTermsCapacity    int // Max terms to track (default: 100)
	ZeroResultsCapacity int // Max zero-result queries to keep (default: 100)
}

// Metrics collects tool call telemetry for one product.
// Thread-safe for concurrent access.
type Metrics struct {
	mu sync.RWMutex

	tools           map[string]*ToolStats
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalCalls      int64
	totalErrors     int64
	zeroResultCount int64
	startTime       time.Time
}

// New creates a metrics collector with default capacities.
func New() *Metrics {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a metrics collector with custom capacities.
func NewWithConfig(cfg Config) *Metrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	return &Metrics{
		tools:       make(map[string]*ToolStats),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
	}
}

// Record captures one tool call. Safe to call on a nil collector.
// This method is thread-safe and non-blocking.
func (m *Metrics) Record(event CallEvent) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.tools[event.Tool]
	if stats == nil {
		stats = &ToolStats{}
		m.tools[event.Tool] = stats
	}
	stats.Calls++
	m.totalCalls++

	if event.Failed {
		stats.Errors++
		m.totalErrors++
	}

	// Track terms
	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	// Only query-bearing calls count as zero-result misses.
	if event.Query != "" && event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		stats.ZeroResults++
		m.zeroResultCount++
	}

	m.latencies[LatencyToBucket(event.Latency)]++
}

// Snapshot returns current metrics for reporting.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tools := make(map[string]ToolStats, len(m.tools))
	for name, stats := range m.tools {
		tools[name] = *stats
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		Since:               m.startTime,
		TotalCalls:          m.totalCalls,
		TotalErrors:         m.totalErrors,
		ZeroResultCount:     m.zeroResultCount,
		Tools:               tools,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
	}
}
