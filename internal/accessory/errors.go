package accessory

import "errors"

// Domain errors for the accessory package.
var (
	// ErrHydrateAfterRun is returned by Hydrate once a pass has started.
	ErrHydrateAfterRun = errors.New("accessory: hydrate called after first run")

	// ErrPassInProgress is returned by Run while another pass is running.
	ErrPassInProgress = errors.New("accessory: discovery pass already in progress")

	// ErrRegistration wraps host failures to register new entries.
	ErrRegistration = errors.New("accessory: registration failed")

	// ErrMissingDependency is returned by NewReconciler for a nil collaborator.
	ErrMissingDependency = errors.New("accessory: missing dependency")

	// ErrAccessoryNotFound is returned by the store for an unknown identity.
	ErrAccessoryNotFound = errors.New("accessory: not found")

	// ErrAccessoryExists is returned by the store for a duplicate identity.
	ErrAccessoryExists = errors.New("accessory: already exists")

	// ErrInvalidEntry is returned by the store for an entry without identity.
	ErrInvalidEntry = errors.New("accessory: invalid entry")
)
