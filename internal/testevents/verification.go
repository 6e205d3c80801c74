package testevents

import (
	"errors"
	"fmt"
	"sort"
)

var ErrMismatch = errors.New("verification mismatch")

// verifyUpload checks the dataset summary against the expectation.
func verifyUpload(exp Expectation, info DatasetInfo) error {
	if info.Events != exp.Events {
		return fmt.Errorf("%w: dataset has %d events, generated %d", ErrMismatch, info.Events, exp.Events)
	}
	if len(info.Types) != len(exp.Types) {
		return fmt.Errorf("%w: dataset has %d types, generated %d", ErrMismatch, len(info.Types), len(exp.Types))
	}
	for _, t := range info.Types {
		if _, ok := exp.Types[t]; !ok {
			return fmt.Errorf("%w: unexpected type %q", ErrMismatch, t)
		}
	}
	if info.MaxPairWeight != exp.MaxPairWeight() {
		return fmt.Errorf("%w: max pair weight %d, expected %d", ErrMismatch, info.MaxPairWeight, exp.MaxPairWeight())
	}
	return nil
}

// verifySnapshot checks the default view: every event is selected, the
// edge weights sum to the event count and each pair carries its count.
func verifySnapshot(exp Expectation, snap Snapshot) error {
	if snap.Summary.Events != exp.Events {
		return fmt.Errorf("%w: snapshot selected %d events, generated %d", ErrMismatch, snap.Summary.Events, exp.Events)
	}
	if len(snap.Nodes) != len(exp.Capabilities) {
		return fmt.Errorf("%w: snapshot has %d nodes, generated %d capabilities", ErrMismatch, len(snap.Nodes), len(exp.Capabilities))
	}
	if len(snap.Edges) != len(exp.Pairs) {
		return fmt.Errorf("%w: snapshot has %d edges, generated %d pairs", ErrMismatch, len(snap.Edges), len(exp.Pairs))
	}

	sum := 0
	for _, e := range snap.Edges {
		want := exp.Pairs[Pair{Source: e.Source, Target: e.Target}]
		if e.Weight != want {
			return fmt.Errorf("%w: edge %s->%s weight %d, expected %d", ErrMismatch, e.Source, e.Target, e.Weight, want)
		}
		sum += e.Weight
	}
	if sum != exp.Events {
		return fmt.Errorf("%w: edge weights sum to %d, expected %d", ErrMismatch, sum, exp.Events)
	}
	return nil
}

// verifyNodes checks inspected in and out degrees against the distinct
// pairs each capability takes part in.
func verifyNodes(exp Expectation, nodes map[string]NodeInfo) error {
	out := make(map[string]int)
	in := make(map[string]int)
	for p := range exp.Pairs {
		out[p.Source]++
		in[p.Target]++
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := nodes[name]
		if info.OutDegree != out[name] || info.InDegree != in[name] {
			return fmt.Errorf("%w: node %s degrees in=%d out=%d, expected in=%d out=%d",
				ErrMismatch, name, info.InDegree, info.OutDegree, in[name], out[name])
		}
	}
	return nil
}
