// Package centrality computes structural metrics over an interaction graph.
package centrality

import (
	"fmt"
	"math"

	"github.com/okian/capflow/internal/domain/graph"
)

const (
	// DefaultMaxIterations is the floor of the automatic eigenvector
	// iteration cap.
	DefaultMaxIterations = 100
	// MaxAutoIterations bounds the automatic cap on large graphs.
	MaxAutoIterations = 100_000
	// DefaultTolerance is the per-node eigenvector convergence tolerance.
	DefaultTolerance = 1e-6
)

// EigenStatus tags the outcome of the eigenvector computation.
type EigenStatus string

const (
	EigenConverged    EigenStatus = "converged"
	EigenNotConverged EigenStatus = "not_converged"
	// EigenUndefined means the graph is acyclic so the dominant eigenvalue is zero.
	EigenUndefined EigenStatus = "undefined"
	EigenEmpty     EigenStatus = "empty"
)

// Fallback reports whether the eigenvector scores were replaced by zeros.
func (s EigenStatus) Fallback() bool {
	return s == EigenNotConverged || s == EigenUndefined
}

// Map holds per-node scores for one graph.
type Map struct {
	Degree            map[string]float64 `json:"degree"`
	Betweenness       map[string]float64 `json:"betweenness"`
	Eigenvector       map[string]float64 `json:"eigenvector"`
	EigenvectorStatus EigenStatus        `json:"eigenvector_status"`
	EigenIterations   int                `json:"eigenvector_iterations"`
}

// Engine computes centrality maps. It holds no per-graph state.
type Engine struct {
	maxIter int // 0 selects iterationCap
	tol     float64
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{tol: DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns degree, betweenness and eigenvector centrality for g.
//
// Degree counts distinct neighbours rather than edge endpoints, so a pair
// joined in both directions adds one and self-loops add nothing. Scores stay
// in [0,1]. A single-node graph scores that node 0.
func (e *Engine) Compute(g *graph.Graph) Map {
	m := Map{
		Degree:      make(map[string]float64, g.NodeCount()),
		Betweenness: make(map[string]float64, g.NodeCount()),
		Eigenvector: make(map[string]float64, g.NodeCount()),
	}
	if g.NodeCount() == 0 {
		m.EigenvectorStatus = EigenEmpty
		return m
	}

	degree(g, m.Degree)
	betweenness(g, m.Betweenness)
	m.EigenvectorStatus, m.EigenIterations = e.eigenvector(g, m.Eigenvector)
	return m
}

// degree divides the number of distinct neighbours by N-1.
func degree(g *graph.Graph, out map[string]float64) {
	n := g.NodeCount()
	if n == 1 {
		out[g.Name(0)] = 0
		return
	}
	scale := 1 / float64(n-1)
	for i := 0; i < n; i++ {
		seen := make(map[int]struct{}, len(g.Out(i))+len(g.In(i)))
		for _, j := range g.Out(i) {
			if j != i {
				seen[j] = struct{}{}
			}
		}
		for _, j := range g.In(i) {
			if j != i {
				seen[j] = struct{}{}
			}
		}
		out[g.Name(i)] = float64(len(seen)) * scale
	}
}

// betweenness runs Brandes' algorithm on the unweighted directed structure.
func betweenness(g *graph.Graph, out map[string]float64) {
	n := g.NodeCount()
	cb := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		queue = append(queue[:0], s)
		sigma[s] = 1
		dist[s] = 0

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.Out(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	scale := 1.0
	if n > 2 {
		scale = 1 / float64((n-1)*(n-2))
	}
	for i := 0; i < n; i++ {
		out[g.Name(i)] = cb[i] * scale
	}
}

// eigenvector runs weighted power iteration on (A+I)^T.
func (e *Engine) eigenvector(g *graph.Graph, out map[string]float64) (EigenStatus, int) {
	n := g.NodeCount()
	zero := func() {
		for i := 0; i < n; i++ {
			out[g.Name(i)] = 0
		}
	}
	if !cyclic(g) {
		zero()
		return EigenUndefined, 0
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}
	last := make([]float64, n)

	limit := e.maxIter
	if limit == 0 {
		limit = iterationCap(n)
	}
	for iter := 1; iter <= limit; iter++ {
		copy(last, x)
		for u := 0; u < n; u++ {
			for _, v := range g.Out(u) {
				x[v] += last[u] * float64(g.WeightAt(u, v))
			}
		}

		norm := 0.0
		for _, v := range x {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		diff := 0.0
		for i := range x {
			x[i] /= norm
			diff += math.Abs(x[i] - last[i])
		}

		if diff < float64(n)*e.tol {
			for i := 0; i < n; i++ {
				out[g.Name(i)] = x[i]
			}
			return EigenConverged, iter
		}
	}

	zero()
	return EigenNotConverged, limit
}

// iterationCap grows with the square of the node count. The gap between
// the two leading eigenvalues of a directed ring of length L shrinks like
// 1/L^2, so a fixed cap rejects long cycles that do converge.
func iterationCap(n int) int {
	c := 2 * n * n
	if n > 1<<10 || c > MaxAutoIterations {
		return MaxAutoIterations
	}
	return max(c, DefaultMaxIterations)
}

// cyclic reports whether g has a directed cycle, self-loops included.
func cyclic(g *graph.Graph) bool {
	n := g.NodeCount()
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		indeg[i] = len(g.In(i))
	}
	queue := make([]int, 0, n)
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	visited := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++
		for _, v := range g.Out(u) {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return visited < n
}

// Density returns the fraction of possible directed edges present,
// ignoring self-loops. Counting them would let a looped graph exceed 1,
// so the ratio is edges between distinct nodes over N*(N-1).
func Density(g *graph.Graph) float64 {
	n := g.NodeCount()
	if n <= 1 {
		return 0
	}
	edges := g.EdgeCount() - g.SelfLoops()
	return float64(edges) / float64(n*(n-1))
}

// ShortestPath returns the hop-minimal path from src to dst. Ties are broken
// by visiting successors in node order.
func ShortestPath(g *graph.Graph, src, dst string) ([]string, error) {
	s, ok := g.Index(src)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, src)
	}
	d, ok := g.Index(dst)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, dst)
	}
	if s == d {
		return []string{src}, nil
	}

	parent := make([]int, g.NodeCount())
	for i := range parent {
		parent[i] = -1
	}
	parent[s] = s
	queue := []int{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range g.Out(u) {
			if parent[v] >= 0 {
				continue
			}
			parent[v] = u
			if v == d {
				return walk(g, parent, s, d), nil
			}
			queue = append(queue, v)
		}
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrNoPath, src, dst)
}

func walk(g *graph.Graph, parent []int, s, d int) []string {
	var rev []int
	for v := d; v != s; v = parent[v] {
		rev = append(rev, v)
	}
	rev = append(rev, s)
	path := make([]string, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = g.Name(v)
	}
	return path
}

// NodeInfo describes one node for an inspector view.
type NodeInfo struct {
	Node         string   `json:"node"`
	Degree       int      `json:"degree"`
	InDegree     int      `json:"in_degree"`
	OutDegree    int      `json:"out_degree"`
	Centrality   float64  `json:"degree_centrality"`
	Betweenness  float64  `json:"betweenness"`
	Eigenvector  float64  `json:"eigenvector"`
	Successors   []string `json:"successors"`
	Predecessors []string `json:"predecessors"`
}

// Inspect collects the metrics of node from g and m.
func Inspect(g *graph.Graph, m Map, node string) (NodeInfo, error) {
	if !g.Has(node) {
		return NodeInfo{}, fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}
	return NodeInfo{
		Node:         node,
		Degree:       g.Degree(node),
		InDegree:     g.InDegree(node),
		OutDegree:    g.OutDegree(node),
		Centrality:   m.Degree[node],
		Betweenness:  m.Betweenness[node],
		Eigenvector:  m.Eigenvector[node],
		Successors:   g.Successors(node),
		Predecessors: g.Predecessors(node),
	}, nil
}
