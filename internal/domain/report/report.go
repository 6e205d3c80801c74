// Package report derives chart-ready aggregates from one pipeline pass.
// Every function accepts empty input and returns empty, non-nil results.
package report

import (
	"sort"

	"github.com/okian/capflow/internal/domain/centrality"
	"github.com/okian/capflow/internal/domain/graph"
	"github.com/okian/capflow/internal/domain/model"
)

// Bin is one histogram bucket.
type Bin struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// CentralityPoint pairs degree and betweenness centrality of one node.
type CentralityPoint struct {
	Node        string  `json:"node"`
	Degree      float64 `json:"degree"`
	Betweenness float64 `json:"betweenness"`
}

// TypeCount is the number of events of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Matrix is a source x target pivot of edge weights, zero-filled.
type Matrix struct {
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	Cells   [][]int  `json:"cells"`
}

// Link connects two FlowDiagram nodes by index.
type Link struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// FlowDiagram is an index-based node/link list.
type FlowDiagram struct {
	Nodes []string `json:"nodes"`
	Links []Link   `json:"links"`
}

// EdgeType is the dominant event type carried by an edge.
type EdgeType struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// WeightDistribution returns the edge weights in table order.
func WeightDistribution(edges graph.EdgeTable) []int {
	return edges.Weights()
}

// DegreeDistribution returns in+out degree per node in node order.
func DegreeDistribution(g *graph.Graph) []int {
	nodes := g.Nodes()
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = g.Degree(n)
	}
	return out
}

// Histogram counts occurrences of each value, ascending by value.
func Histogram(values []int) []Bin {
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	bins := make([]Bin, 0, len(counts))
	for v, c := range counts {
		bins = append(bins, Bin{Value: v, Count: c})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Value < bins[j].Value })
	return bins
}

// CentralityPairs returns one point per node in node order.
func CentralityPairs(g *graph.Graph, m centrality.Map) []CentralityPoint {
	nodes := g.Nodes()
	out := make([]CentralityPoint, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CentralityPoint{Node: n, Degree: m.Degree[n], Betweenness: m.Betweenness[n]})
	}
	return out
}

// TypeCounts counts events per type, most frequent first, ties by type name.
func TypeCounts(events model.Table) []TypeCount {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Transition pivots the edge table into a source x target weight matrix.
func Transition(edges graph.EdgeTable) Matrix {
	src := make(map[string]int)
	dst := make(map[string]int)
	for _, e := range edges {
		src[e.Source] = 0
		dst[e.Target] = 0
	}
	m := Matrix{Sources: sortedKeys(src), Targets: sortedKeys(dst)}
	for i, s := range m.Sources {
		src[s] = i
	}
	for j, t := range m.Targets {
		dst[t] = j
	}
	m.Cells = make([][]int, len(m.Sources))
	for i := range m.Cells {
		m.Cells[i] = make([]int, len(m.Targets))
	}
	for _, e := range edges {
		m.Cells[src[e.Source]][dst[e.Target]] += e.Weight
	}
	return m
}

// Flow maps every edge onto graph node indexes.
func Flow(g *graph.Graph, edges graph.EdgeTable) FlowDiagram {
	f := FlowDiagram{Nodes: g.Nodes(), Links: make([]Link, 0, len(edges))}
	for _, e := range edges {
		s, ok := g.Index(e.Source)
		if !ok {
			continue
		}
		t, ok := g.Index(e.Target)
		if !ok {
			continue
		}
		f.Links = append(f.Links, Link{Source: s, Target: t, Value: e.Weight})
	}
	return f
}

// EdgeTypes returns the most frequent event type per edge. Ties resolve to
// the lexicographically smallest type.
func EdgeTypes(edges graph.EdgeTable, events model.Table) []EdgeType {
	byPair := make(map[model.Pair]map[string]int, len(edges))
	for _, e := range edges {
		byPair[model.Pair{Source: e.Source, Target: e.Target}] = make(map[string]int)
	}
	for _, ev := range events {
		if counts, ok := byPair[model.Pair{Source: ev.Source, Target: ev.Target}]; ok {
			counts[ev.Type]++
		}
	}

	out := make([]EdgeType, 0, len(edges))
	for _, e := range edges {
		best, bestN := "", 0
		for typ, n := range byPair[model.Pair{Source: e.Source, Target: e.Target}] {
			if n > bestN || (n == bestN && typ < best) {
				best, bestN = typ, n
			}
		}
		out = append(out, EdgeType{Source: e.Source, Target: e.Target, Type: best})
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
