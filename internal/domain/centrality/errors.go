package centrality

import "errors"

var (
	// ErrNoPath indicates the destination is unreachable from the source.
	ErrNoPath = errors.New("no path")
	// ErrNodeNotFound indicates a node absent from the current graph.
	ErrNodeNotFound = errors.New("node not found")
)
