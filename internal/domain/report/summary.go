package report

import (
	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/graph"
	"github.com/okian/capflow/internal/domain/model"
)

// Summary is the headline metric row of a pass.
type Summary struct {
	Events      int     `json:"events"`
	TotalEvents int     `json:"total_events"`
	Nodes       int     `json:"nodes"`
	Edges       int     `json:"edges"`
	Density     float64 `json:"density"`
	Cursor      float64 `json:"cursor"`
}

// Summarize builds the metric row for a filtered table of a dataset with total rows.
func Summarize(total int, events model.Table, g *graph.Graph, density, cursor float64) Summary {
	return Summary{
		Events:      len(events),
		TotalEvents: total,
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		Density:     density,
		Cursor:      cursor,
	}
}

// Aggregates bundles every chart-ready series of a pass.
type Aggregates struct {
	WeightHistogram []Bin             `json:"weight_histogram"`
	DegreeHistogram []Bin             `json:"degree_histogram"`
	Centrality      []CentralityPoint `json:"centrality"`
	TypeCounts      []TypeCount       `json:"type_counts"`
	Transition      Matrix            `json:"transition"`
	Flow            FlowDiagram       `json:"flow"`
	EdgeTypes       []EdgeType        `json:"edge_types"`
}

// Build computes all aggregates for one pass.
func Build(events model.Table, g *graph.Graph, edges graph.EdgeTable, m centrality.Map) Aggregates {
	return Aggregates{
		WeightHistogram: Histogram(WeightDistribution(edges)),
		DegreeHistogram: Histogram(DegreeDistribution(g)),
		Centrality:      CentralityPairs(g, m),
		TypeCounts:      TypeCounts(events),
		Transition:      Transition(edges),
		Flow:            Flow(g, edges),
		EdgeTypes:       EdgeTypes(edges, events),
	}
}
