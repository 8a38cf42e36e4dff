package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency  time.Duration
		expected LatencyBucket
	}{
		{50 * time.Millisecond, BucketP100},
		{99 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP250},
		{249 * time.Millisecond, BucketP250},
		{250 * time.Millisecond, BucketP500},
		{499 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{999 * time.Millisecond, BucketP1000},
		{1 * time.Second, BucketP2000},
		{5 * time.Second, BucketP2000},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query    string
		expected []string
	}{
		{"formula engine", []string{"formula", "engine"}},
		{"setValue", []string{"setvalue"}},
		{"a to b", nil},
		{"  Pivot   Table  ", []string{"pivot", "table"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTerms(tt.query))
		})
	}
}

func TestMetrics_Record_CountsPerTool(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "search", Query: "pivot table", ResultCount: 5, Latency: 300 * time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "formula engine", ResultCount: 3, Latency: 200 * time.Millisecond})
	m.Record(CallEvent{Tool: "fetch", Query: "apis/workbook.md", ResultCount: 4, Latency: 80 * time.Millisecond})
	m.Record(CallEvent{Tool: "fetch", Query: "apis/missing.md", Failed: true, Latency: 60 * time.Millisecond})

	snap := m.Snapshot()

	assert.Equal(t, int64(4), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(2), snap.Tools["search"].Calls)
	assert.Equal(t, int64(2), snap.Tools["fetch"].Calls)
	assert.Equal(t, int64(1), snap.Tools["fetch"].Errors)
	assert.Equal(t, int64(0), snap.Tools["search"].Errors)
}

func TestMetrics_Record_TracksTopTerms(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "search", Query: "chart legend", ResultCount: 5, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "chart axis", ResultCount: 3, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "chart series color", ResultCount: 2, Latency: time.Millisecond})

	snap := m.Snapshot()

	require.NotEmpty(t, snap.TopTerms)
	// "chart" appears three times, so it sorts first.
	assert.Equal(t, "chart", snap.TopTerms[0].Term)
	assert.Equal(t, int64(3), snap.TopTerms[0].Count)
}

func TestMetrics_Record_CapturesZeroResults(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "search", Query: "nonexistent widget", ResultCount: 0, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "cell styling", ResultCount: 5, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "another miss", ResultCount: 0, Latency: time.Millisecond})

	snap := m.Snapshot()

	assert.Equal(t, int64(2), snap.ZeroResultCount)
	assert.Equal(t, int64(2), snap.Tools["search"].ZeroResults)
	assert.Contains(t, snap.ZeroResultQueries, "nonexistent widget")
	assert.Contains(t, snap.ZeroResultQueries, "another miss")
	assert.NotContains(t, snap.ZeroResultQueries, "cell styling")
}

func TestMetrics_Record_FailedCallIsNotZeroResult(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "search", Query: "query that errored", Failed: true, Latency: time.Millisecond})

	snap := m.Snapshot()

	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(0), snap.ZeroResultCount)
	assert.Empty(t, snap.ZeroResultQueries)
}

func TestMetrics_Record_QuerylessCallSkipsTermTracking(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "get_code_guidelines", ResultCount: 0, Latency: time.Millisecond})

	snap := m.Snapshot()

	assert.Equal(t, int64(1), snap.Tools["get_code_guidelines"].Calls)
	assert.Empty(t, snap.TopTerms)
	// No query, so a zero count is not a retrieval miss.
	assert.Equal(t, int64(0), snap.ZeroResultCount)
}

func TestMetrics_Record_BucketsLatency(t *testing.T) {
	m := New()

	m.Record(CallEvent{Tool: "fetch", Query: "d1", ResultCount: 1, Latency: 50 * time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "q1", ResultCount: 1, Latency: 150 * time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "q2", ResultCount: 1, Latency: 180 * time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "q3", ResultCount: 1, Latency: 400 * time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "q4", ResultCount: 1, Latency: 2 * time.Second})

	snap := m.Snapshot()

	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP100])
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP250])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP500])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP2000])
}

func TestMetrics_ZeroResultBuffer_MaintainsCapacity(t *testing.T) {
	m := NewWithConfig(Config{ZeroResultsCapacity: 3})

	for _, q := range []string{"missA", "missB", "missC", "missD", "missE"} {
		m.Record(CallEvent{Tool: "search", Query: q, ResultCount: 0, Latency: time.Millisecond})
	}

	snap := m.Snapshot()

	assert.Equal(t, []string{"missC", "missD", "missE"}, snap.ZeroResultQueries)
	// The running count is not capped, only the retained queries are.
	assert.Equal(t, int64(5), snap.ZeroResultCount)
}

func TestMetrics_TopTerms_LRUEviction(t *testing.T) {
	m := NewWithConfig(Config{TopTermsCapacity: 4})

	m.Record(CallEvent{Tool: "search", Query: "alpha beta", ResultCount: 1, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "gamma delta", ResultCount: 1, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "epsilon zeta", ResultCount: 1, Latency: time.Millisecond})

	snap := m.Snapshot()

	assert.LessOrEqual(t, len(snap.TopTerms), 4)
}

func TestMetrics_RecordOnNilCollector(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Record(CallEvent{Tool: "search", Query: "anything", ResultCount: 1})
	})
}

func TestMetrics_ConcurrentRecord(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	const goroutines = 50
	const eventsEach = 100

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsEach; j++ {
				m.Record(CallEvent{
					Tool:        "search",
					Query:       "concurrent query",
					ResultCount: 5,
					Latency:     20 * time.Millisecond,
				})
			}
		}()
	}

	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(goroutines*eventsEach), snap.TotalCalls)
}

func TestSnapshot_ZeroResultPercentage(t *testing.T) {
	m := New()

	assert.Zero(t, m.Snapshot().ZeroResultPercentage())

	m.Record(CallEvent{Tool: "search", Query: "hit", ResultCount: 5, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "miss one", ResultCount: 0, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "miss two", ResultCount: 0, Latency: time.Millisecond})
	m.Record(CallEvent{Tool: "search", Query: "another hit", ResultCount: 2, Latency: time.Millisecond})

	assert.InDelta(t, 50.0, m.Snapshot().ZeroResultPercentage(), 0.01)
}
