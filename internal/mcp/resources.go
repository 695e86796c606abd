package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryMetricsURI is the URI of the query_metrics resource.
const QueryMetricsURI = "lexsearch://query_metrics"

// QueryMetricsOutput is the JSON body of the query_metrics resource.
type QueryMetricsOutput struct {
	TimePeriod          string           `json:"time_period"`
	Queries             QueryInfo        `json:"queries"`
	PhaseCounts         map[string]int64 `json:"phase_counts"`
	LatencyDistribution map[string]int64 `json:"latency_distribution"`
	ExactRepeatCount    int64            `json:"exact_repeat_count"`
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Lookup telemetry for this session: script classes, fallback rate, latency",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

// makeQueryMetricsHandler creates a handler for the query_metrics resource.
func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.queryMetricsJSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      QueryMetricsURI,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}

func (s *Server) queryMetricsJSON() ([]byte, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snapshot := metrics.Snapshot()
	output := QueryMetricsOutput{
		TimePeriod:          "session",
		Queries:             *toQueryInfo(snapshot),
		PhaseCounts:         snapshot.PhaseCounts,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
		ExactRepeatCount:    snapshot.ExactRepeatCount,
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}

	content, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return content, nil
}
