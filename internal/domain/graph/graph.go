// Package graph aggregates filtered events into a directed weighted
// interaction graph.
//
// Nodes are kept in ascending name order and edges in ascending
// (source, target) order, so two builds from the same rows are identical
// and node indexes are stable for index-based consumers.
package graph

import (
	"sort"

	"github.com/okian/capflow/internal/domain/model"
)

// Edge is one row of the edge-weight table.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"w"`
}

// EdgeTable lists surviving (source, target) pairs with their event counts.
// It is the authoritative edge set; Graph is derived from it.
type EdgeTable []Edge

// Weights returns the edge weights in table order.
func (t EdgeTable) Weights() []int {
	out := make([]int, len(t))
	for i, e := range t {
		out[i] = e.Weight
	}
	return out
}

// Graph is an immutable directed graph with integer edge weights.
type Graph struct {
	nodes []string
	index map[string]int
	edges EdgeTable
	out   [][]int // successor indexes, ascending
	in    [][]int // predecessor indexes, ascending
	w     map[[2]int]int
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return FromEdges(nil)
}

// Build groups events by (source, target), drops pairs with fewer than
// minWeight events and returns the resulting graph and edge table.
func Build(events model.Table, minWeight int) (*Graph, EdgeTable) {
	counts := make(map[model.Pair]int)
	for _, e := range events {
		counts[model.Pair{Source: e.Source, Target: e.Target}]++
	}

	edges := make(EdgeTable, 0, len(counts))
	for p, w := range counts {
		if w < minWeight {
			continue
		}
		edges = append(edges, Edge{Source: p.Source, Target: p.Target, Weight: w})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	g := FromEdges(edges)
	return g, g.Edges()
}

// FromEdges derives a graph from an edge table. Duplicate pairs are summed.
func FromEdges(edges EdgeTable) *Graph {
	g := &Graph{index: make(map[string]int), w: make(map[[2]int]int)}

	names := make([]string, 0, 2*len(edges))
	for _, e := range edges {
		names = append(names, e.Source, e.Target)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, ok := g.index[n]; ok {
			continue
		}
		g.index[n] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	g.out = make([][]int, len(g.nodes))
	g.in = make([][]int, len(g.nodes))
	for _, e := range edges {
		u, v := g.index[e.Source], g.index[e.Target]
		key := [2]int{u, v}
		if _, dup := g.w[key]; !dup {
			g.out[u] = append(g.out[u], v)
			g.in[v] = append(g.in[v], u)
		}
		g.w[key] += e.Weight
	}
	for i := range g.nodes {
		sort.Ints(g.out[i])
		sort.Ints(g.in[i])
	}

	g.edges = make(EdgeTable, 0, len(g.w))
	for u := range g.nodes {
		for _, v := range g.out[u] {
			g.edges = append(g.edges, Edge{Source: g.nodes[u], Target: g.nodes[v], Weight: g.w[[2]int{u, v}]})
		}
	}
	return g
}

// Nodes returns node names in index order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge table.
func (g *Graph) Edges() EdgeTable {
	out := make(EdgeTable, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Has reports whether node is in the graph.
func (g *Graph) Has(node string) bool {
	_, ok := g.index[node]
	return ok
}

// Index returns the stable index of node.
func (g *Graph) Index(node string) (int, bool) {
	i, ok := g.index[node]
	return i, ok
}

// Name returns the node at index i.
func (g *Graph) Name(i int) string { return g.nodes[i] }

// Weight returns the weight of u->v, or 0 if the edge is absent.
func (g *Graph) Weight(u, v string) int {
	ui, ok := g.index[u]
	if !ok {
		return 0
	}
	vi, ok := g.index[v]
	if !ok {
		return 0
	}
	return g.w[[2]int{ui, vi}]
}

// WeightAt returns the weight of the edge between two node indexes.
func (g *Graph) WeightAt(u, v int) int { return g.w[[2]int{u, v}] }

// Out returns successor indexes of node index i. The slice must not be modified.
func (g *Graph) Out(i int) []int { return g.out[i] }

// In returns predecessor indexes of node index i. The slice must not be modified.
func (g *Graph) In(i int) []int { return g.in[i] }

// Successors returns the names of nodes node points to.
func (g *Graph) Successors(node string) []string {
	i, ok := g.index[node]
	if !ok {
		return nil
	}
	return g.names(g.out[i])
}

// Predecessors returns the names of nodes pointing to node.
func (g *Graph) Predecessors(node string) []string {
	i, ok := g.index[node]
	if !ok {
		return nil
	}
	return g.names(g.in[i])
}

// OutDegree returns the number of outgoing edges of node.
func (g *Graph) OutDegree(node string) int {
	i, ok := g.index[node]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// InDegree returns the number of incoming edges of node.
func (g *Graph) InDegree(node string) int {
	i, ok := g.index[node]
	if !ok {
		return 0
	}
	return len(g.in[i])
}

// Degree returns in-degree plus out-degree. A self-loop counts once on each side.
func (g *Graph) Degree(node string) int {
	return g.InDegree(node) + g.OutDegree(node)
}

// SelfLoops returns the number of edges whose source equals their target.
func (g *Graph) SelfLoops() int {
	n := 0
	for _, e := range g.edges {
		if e.Source == e.Target {
			n++
		}
	}
	return n
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = g.nodes[j]
	}
	return out
}
