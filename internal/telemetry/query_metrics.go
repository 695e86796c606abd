// Package telemetry keeps in-process lookup statistics: how queries are
// classified, how often the fallback phase runs, latency, and which queries
// come back empty. Nothing leaves the process.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1    LatencyBucket = "p1"    // <1ms
	BucketP10   LatencyBucket = "p10"   // 1-10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP1000 LatencyBucket = "p1000" // >=100ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketP1000
	}
}

// QueryEvent is one completed (or failed) lookup.
type QueryEvent struct {
	Query       string
	Class       string
	Phase       string
	ResultCount int
	Latency     time.Duration
	Failed      bool
	Timestamp   time.Time
}

// IsZeroResult reports a successful lookup that found nothing.
func (e QueryEvent) IsZeroResult() bool {
	return !e.Failed && e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffer content oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// QueryCount is a query and how many times it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	FailedQueries       int64                   `json:"failed_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ClassCounts         map[string]int64        `json:"class_counts"`
	PhaseCounts         map[string]int64        `json:"phase_counts"`
	FailedPhaseCounts   map[string]int64        `json:"failed_phase_counts"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopQueries          []QueryCount            `json:"top_queries"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of successful lookups that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	ok := s.TotalQueries - s.FailedQueries
	if ok <= 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(ok) * 100
}

// FallbackPercentage returns the share of lookups answered by the fallback phase.
func (s *Snapshot) FallbackPercentage(fallbackPhase string) float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.PhaseCounts[fallbackPhase]) / float64(s.TotalQueries) * 100
}

// Config configures the collector.
type Config struct {
	TopQueriesCapacity  int // distinct queries counted (default: 200)
	ZeroResultsCapacity int // zero-result queries kept (default: 100)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopQueriesCapacity:  200,
		ZeroResultsCapacity: 100,
	}
}

// QueryMetrics collects lookup telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	classes         map[string]int64
	phases          map[string]int64
	failedPhases    map[string]int64
	latencies       map[LatencyBucket]int64
	queries         *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	total           int64
	failed          int64
	zeroResultCount int64
	exactRepeats    int64
	startTime       time.Time
}

// NewQueryMetrics creates a collector with default configuration.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom configuration.
func NewQueryMetricsWithConfig(cfg Config) *QueryMetrics {
	if cfg.TopQueriesCapacity <= 0 {
		cfg.TopQueriesCapacity = 200
	}
	queries, _ := lru.New[string, int64](cfg.TopQueriesCapacity)

	return &QueryMetrics{
		classes:      make(map[string]int64),
		phases:       make(map[string]int64),
		failedPhases: make(map[string]int64),
		latencies:    make(map[LatencyBucket]int64),
		queries:      queries,
		zeroResults:  NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		startTime:    time.Now(),
	}
}

// Record captures one lookup.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.latencies[LatencyToBucket(event.Latency)]++
	if event.Class != "" {
		m.classes[event.Class]++
	}

	if event.Failed {
		m.failed++
		if event.Phase != "" {
			m.failedPhases[event.Phase]++
		}
		return
	}
	if event.Phase != "" {
		m.phases[event.Phase]++
	}
	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
	}

	key := strings.TrimSpace(event.Query)
	count, seen := m.queries.Get(key)
	if seen {
		m.exactRepeats++
	}
	m.queries.Add(key, count+1)
}

// Snapshot returns the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	top := make([]QueryCount, 0, m.queries.Len())
	for _, q := range m.queries.Keys() {
		if n, ok := m.queries.Peek(q); ok {
			top = append(top, QueryCount{Query: q, Count: n})
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if len(top) > 10 {
		top = top[:10]
	}

	return &Snapshot{
		TotalQueries:        m.total,
		FailedQueries:       m.failed,
		ZeroResultCount:     m.zeroResultCount,
		ClassCounts:         copyCounts(m.classes),
		PhaseCounts:         copyCounts(m.phases),
		FailedPhaseCounts:   copyCounts(m.failedPhases),
		LatencyDistribution: copyCounts(m.latencies),
		TopQueries:          top,
		ZeroResultQueries:   m.zeroResults.Items(),
		ExactRepeatCount:    m.exactRepeats,
		Since:               m.startTime,
	}
}

func copyCounts[K comparable](src map[K]int64) map[K]int64 {
	dst := make(map[K]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
