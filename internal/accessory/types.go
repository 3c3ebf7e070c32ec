package accessory

import (
	"context"
	"time"

	"github.com/nerrad567/hood-bridge/internal/miele"
)

// Context is the opaque bag persisted with an entry.
type Context struct {
	Device *miele.HoodDevice `json:"device,omitempty"`
}

// Entry is one accessory in the cache.
type Entry struct {
	Identity    Identity  `json:"identity"`
	DisplayName string    `json:"displayName"`
	Context     Context   `json:"context"`
	CreatedAt   time.Time `json:"createdAt"`
}

// newEntry builds the entry created the first time a hood is seen.
func newEntry(id Identity, hood miele.HoodDevice, now time.Time) *Entry {
	device := hood
	return &Entry{
		Identity:    id,
		DisplayName: hood.DisplayName,
		Context:     Context{Device: &device},
		CreatedAt:   now.UTC(),
	}
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Context.Device != nil {
		d := *e.Context.Device
		c.Context.Device = &d
	}
	return &c
}

// UniqueID returns the hood serial stored in the context, or "".
func (e *Entry) UniqueID() string {
	if e == nil || e.Context.Device == nil {
		return ""
	}
	return e.Context.Device.UniqueID
}

// Fetcher reads the remote device directory. *miele.Client implements it.
type Fetcher interface {
	FetchDevices(ctx context.Context) ([]miele.DeviceRecord, error)
}

// Host registers newly created accessories, persisting and activating them.
// Each call carries the entries of one Create decision.
type Host interface {
	RegisterNewAccessories(ctx context.Context, entries []*Entry) error
}

// ControllerFactory attaches control wiring to an accessory. It is called
// once per reconciled hood per pass, on both the Reuse and Create paths.
type ControllerFactory interface {
	Attach(entry *Entry, modelNumber, uniqueID string)
}

// Outcome is the terminal state a hood reached in a pass.
type Outcome string

const (
	OutcomeReused  Outcome = "reused"
	OutcomeCreated Outcome = "created"
	OutcomeFailed  Outcome = "registration_failed"
)

// Decision records what happened to one hood.
type Decision struct {
	Identity Identity `json:"identity"`
	UniqueID string   `json:"unique_id"`
	Outcome  Outcome  `json:"outcome"`
}

// PassResult summarises one discovery pass.
type PassResult struct {
	StartedAt time.Time
	Duration  time.Duration

	// Records is the number of directory values fetched.
	Records int
	// Hoods is the number of records that classified as hoods.
	Hoods int
	// Ignored counts well-formed records of other appliance types.
	Ignored int
	// Malformed counts records skipped with a MalformedRecordError.
	Malformed int

	Decisions []Decision
}

// Count returns how many decisions had the given outcome.
func (r PassResult) Count(o Outcome) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Outcome == o {
			n++
		}
	}
	return n
}
