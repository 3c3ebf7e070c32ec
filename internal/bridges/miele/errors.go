package miele

import "errors"

// Domain errors for the Miele bridge package.
var (
	// ErrUnknownHood is returned for a command addressed to a hood that
	// has no controller.
	ErrUnknownHood = errors.New("miele bridge: unknown hood")

	// ErrUnknownCommand is returned for an unsupported command name.
	ErrUnknownCommand = errors.New("miele bridge: unknown command")

	// ErrInvalidParameters is returned when command parameters are missing
	// or out of range.
	ErrInvalidParameters = errors.New("miele bridge: invalid parameters")
)
