package normalize

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrMalformedInput reports input that cannot be read as a list of event
	// records. It is never returned for input that merely yields no events.
	ErrMalformedInput = errors.New("malformed input")
)
