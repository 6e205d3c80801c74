// Package filter selects the working subset of the canonical event table.
//
// Every filter is an independent row predicate, so the order in which they
// are applied never changes the result.
package filter

import (
	"github.com/okian/capflow/internal/domain/model"
)

// Predicate decides whether a row is kept.
type Predicate func(e model.Event) bool

// ByTypes keeps rows whose type is in the set. An empty set keeps nothing.
func ByTypes(types []string) Predicate {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(e model.Event) bool {
		_, ok := set[e.Type]
		return ok
	}
}

// ByWindow keeps rows with lo <= timestamp <= hi.
func ByWindow(w model.Window) Predicate {
	return func(e model.Event) bool { return w.Contains(e.Timestamp) }
}

// ByCursor keeps rows at or before the playback cursor.
func ByCursor(cursor float64) Predicate {
	return func(e model.Event) bool { return e.Timestamp <= cursor }
}

// ByMatcher keeps rows whose source or target matches m.
func ByMatcher(m Matcher) Predicate {
	if m.Mode == MatchAll {
		return func(model.Event) bool { return true }
	}
	return func(e model.Event) bool { return m.Match(e.Source) || m.Match(e.Target) }
}

// ByPattern compiles p and keeps rows whose source or target matches it.
func ByPattern(p string) Predicate {
	return ByMatcher(CompilePattern(p))
}

// Apply returns the rows satisfying every predicate, in input order. The
// result never shares storage with events.
func Apply(events model.Table, preds ...Predicate) model.Table {
	out := make(model.Table, 0, len(events))
rows:
	for _, e := range events {
		for _, p := range preds {
			if !p(e) {
				continue rows
			}
		}
		out = append(out, e)
	}
	return out
}

// Result is a filtered view plus the matcher that produced it.
type Result struct {
	Events  model.Table
	Matcher Matcher
}

// Select applies the type, window, cursor and pattern filters of v.
func Select(events model.Table, v model.View) Result {
	m := CompilePattern(v.Pattern)
	return Result{
		Events: Apply(events,
			ByTypes(v.Types),
			ByWindow(v.Window),
			ByCursor(v.Cursor),
			ByMatcher(m),
		),
		Matcher: m,
	}
}
