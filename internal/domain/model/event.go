// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"sort"
)

// RawEventRecord is one element of the uploaded event log. Only the topic is
// decoded eagerly; Msg is decoded by the normalizer once the topic matches.
type RawEventRecord struct {
	Topic string          `json:"topic"`
	Msg   json.RawMessage `json:"msg"`
}

// Event is a canonical, normalized capability event.
type Event struct {
	Timestamp float64 `json:"timestamp"` // seconds relative to the earliest event
	Source    string  `json:"source"`    // emitting capability, never empty
	Target    string  `json:"target"`    // receiving capability, defaults to Source
	Type      string  `json:"type"`      // text up to the first ':'
	Text      string  `json:"text"`      // free-text message
}

// Table is the canonical event table, sorted by timestamp ascending.
type Table []Event

// Len returns the number of rows.
func (t Table) Len() int { return len(t) }

// Empty reports whether the table holds no rows.
func (t Table) Empty() bool { return len(t) == 0 }

// Types returns the distinct event types in ascending order.
func (t Table) Types() []string {
	seen := make(map[string]struct{}, len(t))
	for _, e := range t {
		seen[e.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for typ := range seen {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Span returns the smallest and largest timestamp. Both are zero for an empty table.
func (t Table) Span() Window {
	if len(t) == 0 {
		return Window{}
	}
	w := Window{Lo: t[0].Timestamp, Hi: t[0].Timestamp}
	for _, e := range t[1:] {
		if e.Timestamp < w.Lo {
			w.Lo = e.Timestamp
		}
		if e.Timestamp > w.Hi {
			w.Hi = e.Timestamp
		}
	}
	return w
}

// MaxPairWeight returns the largest number of events shared by one
// (source, target) pair across the whole table.
func (t Table) MaxPairWeight() int {
	counts := make(map[Pair]int, len(t))
	best := 0
	for _, e := range t {
		p := Pair{Source: e.Source, Target: e.Target}
		counts[p]++
		if counts[p] > best {
			best = counts[p]
		}
	}
	return best
}

// Clone returns a copy that shares no backing array with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Pair identifies a directed (source, target) edge.
type Pair struct {
	Source string
	Target string
}
