package filter

import (
	"regexp"
	"strings"
)

// MatchMode tells how a capability pattern is evaluated.
type MatchMode int

// Match modes.
const (
	// MatchAll is used for an empty pattern: every name matches.
	MatchAll MatchMode = iota
	// MatchRegex searches names with a case-insensitive regular expression.
	MatchRegex
	// MatchSubstring is the fallback when the pattern is not a valid
	// expression: a case-insensitive literal substring search.
	MatchSubstring
)

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case MatchAll:
		return "all"
	case MatchRegex:
		return "regex"
	case MatchSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// Matcher is a compiled capability-name pattern.
type Matcher struct {
	Mode    MatchMode
	Pattern string
	// CompileErr holds the regexp error that caused a substring fallback.
	CompileErr error

	re    *regexp.Regexp
	lower string
}

// CompilePattern compiles p as a case-insensitive regular expression,
// falling back to a literal substring match if it does not compile.
func CompilePattern(p string) Matcher {
	if p == "" {
		return Matcher{Mode: MatchAll}
	}
	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return Matcher{Mode: MatchSubstring, Pattern: p, CompileErr: err, lower: strings.ToLower(p)}
	}
	return Matcher{Mode: MatchRegex, Pattern: p, re: re}
}

// Match reports whether name matches anywhere.
func (m Matcher) Match(name string) bool {
	switch m.Mode {
	case MatchRegex:
		return m.re.MatchString(name)
	case MatchSubstring:
		return strings.Contains(strings.ToLower(name), m.lower)
	default:
		return true
	}
}

// Fallback reports whether the pattern was downgraded to substring matching.
func (m Matcher) Fallback() bool { return m.Mode == MatchSubstring }
