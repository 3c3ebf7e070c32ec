package platform

import "errors"

var (
	// ErrNotStarted is returned by Discover before Start.
	ErrNotStarted = errors.New("platform: not started")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("platform: already started")

	// ErrLoadCache is returned by Start when the accessory cache cannot be read.
	ErrLoadCache = errors.New("platform: loading accessory cache failed")
)
