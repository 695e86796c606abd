package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/lexsearch/internal/config"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
	"github.com/Aman-CERP/lexsearch/pkg/version"
)

// Tool names.
const (
	ToolLookup        = "lookup"
	ToolLexiconStatus = "lexicon_status"
)

// Searcher runs lookups. *search.Engine satisfies it.
type Searcher interface {
	Lookup(ctx context.Context, query string, opts search.LookupOptions) (*search.Response, error)
}

// StatsProvider reports lexicon statistics. *lexicon.Lexicon satisfies it.
type StatsProvider interface {
	Stats(ctx context.Context) (*lexicon.Stats, error)
}

// Server is the MCP server for lexsearch.
// It exposes the lookup engine to AI clients over stdio.
type Server struct {
	mcp    *mcp.Server
	engine Searcher
	stats  StatsProvider
	config *config.Config
	logger *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolLookup,
		Description: "Look up a word in the Japanese-English lexicon. Accepts kanji, kana, English, or a mix. " +
			"Exact matches rank first, then partial matches by length. Returns at most 50 entries.",
	},
	{
		Name:        ToolLexiconStatus,
		Description: "Report lexicon size, index backend and lookup statistics for this session.",
	},
}

// NewServer creates a new MCP server.
func NewServer(engine Searcher, stats StatsProvider, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if stats == nil {
		return nil, errors.New("stats provider is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine: engine,
		stats:  stats,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "lexsearch",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query metrics collector.
// When set, the query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments.
// It returns the tool's structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolLookup:
		var input LookupInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return s.handleLookup(ctx, input)
	case ToolLexiconStatus:
		return s.handleStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// handleLookup runs one lookup. An empty query yields an empty result, not an error.
func (s *Server) handleLookup(ctx context.Context, input LookupInput) (LookupOutput, error) {
	if input.Limit < 0 {
		return LookupOutput{}, NewInvalidParamsError("limit must be between 1 and 50")
	}

	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("lookup_started",
		slog.String("request_id", requestID),
		slog.String("query", input.Query),
		slog.Int("limit", input.Limit))

	resp, err := s.engine.Lookup(ctx, input.Query, search.LookupOptions{Limit: input.Limit})
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("lookup_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return LookupOutput{}, MapError(err)
	}

	s.logger.Info("lookup_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(resp.Results)))

	return toLookupOutput(resp, input.Explain), nil
}

func (s *Server) handleStatus(ctx context.Context) (*StatusOutput, error) {
	st, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	var snap *telemetry.Snapshot
	if metrics != nil {
		snap = metrics.Snapshot()
	}
	return toStatusOutput(st, snap), nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.mcpLookupHandler)
	s.logger.Debug("tool_registered", slog.String("name", ToolLookup))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.mcpStatusHandler)
	s.logger.Debug("tool_registered", slog.String("name", ToolLexiconStatus))
}

// mcpLookupHandler is the MCP SDK handler for the lookup tool.
func (s *Server) mcpLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, input LookupInput) (
	*mcp.CallToolResult,
	LookupOutput,
	error,
) {
	out, err := s.handleLookup(ctx, input)
	if err != nil {
		return nil, LookupOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatLookup(input.Query, out)}},
	}, out, nil
}

// mcpStatusHandler is the MCP SDK handler for the lexicon_status tool.
func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	*StatusOutput,
	error,
) {
	out, err := s.handleStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	// The SDK server stops when its context is canceled.
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
