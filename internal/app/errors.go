package service

import "errors"

var (
	// ErrNotStarted is returned by dataset operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidPlayback is returned for a non-positive step or interval.
	ErrInvalidPlayback = errors.New("invalid playback settings")
)
