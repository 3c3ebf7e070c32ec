package accessory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hood-bridge/internal/miele"
)

// Logger defines the logging interface used by the Reconciler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Reconciler.
type Options struct {
	Fetcher     Fetcher
	Host        Host
	Controllers ControllerFactory

	// Logger is optional.
	Logger Logger

	// Now is optional; it timestamps new entries and pass results.
	Now func() time.Time
}

// Reconciler matches discovered hoods against the accessory index.
//
// It has two phases. Hydrate seeds the index from the cache and may be
// called any number of times before the first Run. Run performs one
// discovery pass; after it has been called, Hydrate is rejected.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - At most one pass runs at a time; an overlapping Run returns
//     ErrPassInProgress without fetching.
type Reconciler struct {
	fetcher     Fetcher
	host        Host
	controllers ControllerFactory
	logger      Logger
	now         func() time.Time

	// pass is held for the duration of Run.
	pass sync.Mutex

	mu      sync.RWMutex
	index   map[Identity]*Entry
	order   []Identity
	started bool
}

// NewReconciler creates a Reconciler with an empty index.
//
// Returns:
//   - *Reconciler: Ready for hydration
//   - error: ErrMissingDependency if a collaborator is nil
func NewReconciler(opts Options) (*Reconciler, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", ErrMissingDependency)
	case opts.Host == nil:
		return nil, fmt.Errorf("%w: host", ErrMissingDependency)
	case opts.Controllers == nil:
		return nil, fmt.Errorf("%w: controller factory", ErrMissingDependency)
	}

	r := &Reconciler{
		fetcher:     opts.Fetcher,
		host:        opts.Host,
		controllers: opts.Controllers,
		logger:      opts.Logger,
		now:         opts.Now,
		index:       make(map[Identity]*Entry),
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Hydrate appends previously persisted entries to the index. An identity
// already present keeps its first entry.
//
// Returns:
//   - error: ErrHydrateAfterRun once Run has been called
func (r *Reconciler) Hydrate(entries ...*Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrHydrateAfterRun
	}
	for _, e := range entries {
		if e == nil {
			continue
		}
		if _, dup := r.index[e.Identity]; dup {
			r.logger.Debug("ignoring duplicate cached accessory", "identity", e.Identity)
			continue
		}
		r.index[e.Identity] = e.Clone()
		r.order = append(r.order, e.Identity)
		r.logger.Info("loading accessory from cache", "name", e.DisplayName, "identity", e.Identity)
	}
	return nil
}

// Run performs one discovery pass: fetch the directory, classify each
// record, and reuse or create an accessory for every hood.
//
// A fetch or parse failure abandons the pass before anything is touched.
// A malformed record is skipped. A failed registration is isolated to
// its entry, which stays out of the index so a later pass retries it.
//
// Parameters:
//   - ctx: Bounds the directory request and registration calls
//
// Returns:
//   - PassResult: What the pass saw and decided
//   - error: ErrPassInProgress, the fetch error, or ErrRegistration
func (r *Reconciler) Run(ctx context.Context) (PassResult, error) {
	if !r.pass.TryLock() {
		return PassResult{}, ErrPassInProgress
	}
	defer r.pass.Unlock()

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	result := PassResult{StartedAt: r.now()}

	records, err := r.fetcher.FetchDevices(ctx)
	if err != nil {
		result.Duration = r.now().Sub(result.StartedAt)
		return result, fmt.Errorf("fetching device directory: %w", err)
	}
	result.Records = len(records)

	// Entries created earlier in this pass, registered or not.
	created := make(map[Identity]*Entry)
	var regErrs []error

	for _, rec := range records {
		hood, ok, err := miele.ClassifyHood(rec)
		if err != nil {
			result.Malformed++
			r.logger.Debug("skipping malformed device record", "handle", rec.Handle, "error", err)
			continue
		}
		if !ok {
			result.Ignored++
			continue
		}
		result.Hoods++

		decision, err := r.reconcile(ctx, hood, created)
		result.Decisions = append(result.Decisions, decision)
		if err != nil {
			regErrs = append(regErrs, err)
		}
	}

	result.Duration = r.now().Sub(result.StartedAt)
	if len(regErrs) > 0 {
		return result, errors.Join(regErrs...)
	}
	return result, nil
}

// reconcile takes one hood through identify, lookup, and reuse or create.
func (r *Reconciler) reconcile(ctx context.Context, hood miele.HoodDevice, created map[Identity]*Entry) (Decision, error) {
	id := NewIdentity(hood.UniqueID)
	decision := Decision{Identity: id, UniqueID: hood.UniqueID}

	entry, found := r.lookup(id)
	if !found {
		entry, found = created[id]
	}
	if found {
		r.logger.Debug("restoring existing accessory", "name", entry.DisplayName, "identity", id)
		r.controllers.Attach(entry, hood.ModelNumber, hood.UniqueID)
		decision.Outcome = OutcomeReused
		return decision, nil
	}

	entry = newEntry(id, hood, r.now())
	created[id] = entry
	r.logger.Info("adding new accessory", "name", entry.DisplayName, "identity", id)
	r.controllers.Attach(entry, hood.ModelNumber, hood.UniqueID)

	if err := r.host.RegisterNewAccessories(ctx, []*Entry{entry}); err != nil {
		r.logger.Warn("registering accessory failed", "name", entry.DisplayName, "identity", id, "error", err)
		decision.Outcome = OutcomeFailed
		return decision, fmt.Errorf("%w: %s: %w", ErrRegistration, id, err)
	}

	r.mu.Lock()
	r.index[id] = entry
	r.order = append(r.order, id)
	r.mu.Unlock()

	decision.Outcome = OutcomeCreated
	return decision, nil
}

func (r *Reconciler) lookup(id Identity) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[id]
	return e, ok
}

// Lookup returns a copy of the indexed entry with the given identity.
func (r *Reconciler) Lookup(id Identity) (*Entry, bool) {
	e, ok := r.lookup(id)
	return e.Clone(), ok
}

// Entries returns copies of all indexed entries in the order they were
// hydrated or created.
func (r *Reconciler) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.index[id].Clone())
	}
	return out
}

// Started reports whether the first pass has begun.
func (r *Reconciler) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}
