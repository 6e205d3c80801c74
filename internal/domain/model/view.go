package model

// Window is a closed time interval in relative seconds.
type Window struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether ts lies inside the window, both ends included.
func (w Window) Contains(ts float64) bool {
	return w.Lo <= ts && ts <= w.Hi
}

// View is the complete set of filter and graph parameters for one
// recomputation pass. It is passed by value and never mutated by the core.
type View struct {
	// Types is the selected type set. An empty set selects nothing.
	Types []string `json:"types"`
	// Window bounds event timestamps, inclusive.
	Window Window `json:"window"`
	// Cursor is the playback "now"; events after it are hidden.
	Cursor float64 `json:"cursor"`
	// Pattern matches source or target capability names, case-insensitive.
	Pattern string `json:"pattern"`
	// MinWeight drops edges carrying fewer events.
	MinWeight int `json:"min_weight"`
}

// TypeSet returns the selected types as a lookup set.
func (v View) TypeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(v.Types))
	for _, t := range v.Types {
		set[t] = struct{}{}
	}
	return set
}
