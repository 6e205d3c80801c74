package tablefile

import "errors"

var (
	// ErrMalformedTable indicates an import that is not a canonical table.
	ErrMalformedTable = errors.New("malformed table")
	// ErrUnknownFormat indicates an unsupported file format name.
	ErrUnknownFormat = errors.New("unknown table format")
)
