package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/logging"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// MaxResults is the hard cap on results per lookup.
const MaxResults = 50

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Config configures the engine.
type Config struct {
	// MaxResults is the default result cap, clamped to 1..MaxResults.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{MaxResults: MaxResults}
}

// LookupOptions configures a single lookup.
type LookupOptions struct {
	// Limit overrides Config.MaxResults for this call, up to MaxResults.
	// Zero means the configured default.
	Limit int
}

// Explain describes how a lookup was answered.
type Explain struct {
	Query           string            `json:"query"`
	Class           QueryClass        `json:"class"`
	Fields          []lexicon.Field   `json:"fields"`
	Phase           Phase             `json:"phase"`
	FallbackQueries map[string]string `json:"fallback_queries,omitempty"`
	Candidates      int               `json:"candidates"`
	Truncated       bool              `json:"truncated"`
	Latency         time.Duration     `json:"latency_ns"`
}

// Response is the result of Lookup.
type Response struct {
	Results []*Result `json:"results"`
	Explain *Explain  `json:"explain,omitempty"`
}

// Engine answers lexicon lookups. It holds no per-query state and is safe
// for concurrent use.
type Engine struct {
	store   lexicon.Store
	config  Config
	metrics *telemetry.QueryMetrics
	logger  *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger used for per-phase debug events.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over store.
func NewEngine(store lexicon.Store, config Config, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: lexicon store is required", ErrNilDependency)
	}
	e := &Engine{
		store:  store,
		config: config,
		logger: logging.Discard(),
	}
	e.config.MaxResults = clampLimit(config.MaxResults, MaxResults)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search returns at most Config.MaxResults entries for query, best match
// first. The empty query returns an empty list without touching the store.
// A failing store surfaces as an error wrapping errors.ErrStoreUnavailable.
func (e *Engine) Search(ctx context.Context, query string) ([]*Result, error) {
	resp, err := e.Lookup(ctx, query, LookupOptions{})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Lookup is Search with per-call options and an explanation of the match.
func (e *Engine) Lookup(ctx context.Context, query string, opts LookupOptions) (*Response, error) {
	start := time.Now()
	limit := e.config.MaxResults
	if opts.Limit > 0 {
		limit = clampLimit(opts.Limit, MaxResults)
	}

	if query == "" {
		return &Response{
			Results: []*Result{},
			Explain: &Explain{Class: ClassMixed, Fields: []lexicon.Field{}},
		}, nil
	}

	class := Classify(query)
	fields := FieldsFor(class)

	x := &executor{store: e.store}
	matched, err := x.run(ctx, query, fields)
	if err != nil {
		e.record(query, class, x.phase, 0, time.Since(start), true)
		e.logger.Debug("search_failed",
			slog.String("query", query),
			slog.String("class", class.String()),
			slog.String("phase", x.phase.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	if matched.phase == PhaseFallback {
		e.logger.Debug("fallback_engaged",
			slog.String("query", query),
			slog.Any("queries", matched.fallbackQueries),
			slog.Int("candidates", len(matched.candidates)))
	}

	ranked, total := rank(matched.candidates, limit)
	results, err := assemble(ctx, e.store, ranked)
	if err != nil {
		e.record(query, class, matched.phase, 0, time.Since(start), true)
		return nil, err
	}

	latency := time.Since(start)
	e.record(query, class, matched.phase, len(results), latency, false)
	e.logger.Debug("search_completed",
		slog.String("query", query),
		slog.String("class", class.String()),
		slog.String("phase", matched.phase.String()),
		slog.Int("candidates", total),
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	explain := &Explain{
		Query:      query,
		Class:      class,
		Fields:     fields,
		Phase:      matched.phase,
		Candidates: total,
		Truncated:  total > len(results),
		Latency:    latency,
	}
	if len(matched.fallbackQueries) > 0 {
		explain.FallbackQueries = make(map[string]string, len(matched.fallbackQueries))
		for f, q := range matched.fallbackQueries {
			explain.FallbackQueries[f.String()] = q
		}
	}

	return &Response{Results: results, Explain: explain}, nil
}

// Metrics returns the engine's query metrics, or nil when none are attached.
func (e *Engine) Metrics() *telemetry.QueryMetrics {
	return e.metrics
}

func (e *Engine) record(query string, class QueryClass, phase Phase, n int, latency time.Duration, failed bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		Class:       class.String(),
		Phase:       phase.String(),
		ResultCount: n,
		Latency:     latency,
		Failed:      failed,
		Timestamp:   time.Now(),
	})
}

// clampLimit returns n limited to 1..ceiling, or ceiling when n is not positive.
func clampLimit(n, ceiling int) int {
	if n <= 0 || n > ceiling {
		return ceiling
	}
	return n
}
