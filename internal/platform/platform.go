package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hood-bridge/internal/miele"
)

// Logger defines the logging interface used by the platform.
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

// MetricsWriter records discovery passes. *influxdb.Client implements it.
type MetricsWriter interface {
	WriteDiscoveryPass(bridgeID string, m influxdb.PassMetrics)
}

// Options configures a Platform.
type Options struct {
	BridgeID string

	// Fetcher reads the Miele device directory.
	Fetcher accessory.Fetcher

	// Store is the accessory cache.
	Store accessory.Store

	// Controllers wires each reconciled hood.
	Controllers accessory.ControllerFactory

	// Announcer is optional (nil when MQTT is disabled).
	Announcer Announcer

	// Metrics is optional.
	Metrics MetricsWriter

	// PollInterval repeats discovery. Zero discovers once, at start.
	PollInterval time.Duration

	// Logger is optional.
	Logger Logger
}

// Status describes the most recent discovery pass.
type Status struct {
	Started   bool      `json:"started"`
	Passes    int       `json:"passes"`
	LastPass  time.Time `json:"last_pass,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Hoods     int       `json:"hoods"`
	Created   int       `json:"created"`
	Reused    int       `json:"reused"`
	Malformed int       `json:"malformed"`
}

// Platform drives discovery against the accessory cache.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Platform struct {
	bridgeID     string
	store        accessory.Store
	reconciler   *accessory.Reconciler
	metrics      MetricsWriter
	pollInterval time.Duration
	logger       Logger

	// startMu serialises Start; started flips only once hydration succeeded.
	startMu sync.Mutex
	mu      sync.RWMutex
	started bool
	status  Status

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New builds a Platform and its reconciler.
//
// Returns:
//   - *Platform: Ready to Start
//   - error: If a required collaborator is missing
func New(opts Options) (*Platform, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store", accessory.ErrMissingDependency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	rec, err := accessory.NewReconciler(accessory.Options{
		Fetcher:     opts.Fetcher,
		Host:        NewHost(opts.Store, opts.Announcer, opts.BridgeID, logger),
		Controllers: opts.Controllers,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &Platform{
		bridgeID:     opts.BridgeID,
		store:        opts.Store,
		reconciler:   rec,
		metrics:      opts.Metrics,
		pollInterval: opts.PollInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}, nil
}

// Start hydrates the reconciler from the cache and fires the ready
// signal: the first pass runs in the background, followed by periodic
// passes when a poll interval is set.
//
// Parameters:
//   - ctx: Parent context for all passes; cancelling it stops polling
//
// Returns:
//   - error: ErrLoadCache if the cache cannot be read, ErrAlreadyStarted on a second call.
//     A failed Start leaves the platform unstarted and may be retried.
func (p *Platform) Start(ctx context.Context) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if started {
		return ErrAlreadyStarted
	}

	cached, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadCache, err)
	}
	if err := p.reconciler.Hydrate(cached...); err != nil {
		return err
	}
	p.logger.Info("accessory cache loaded", "accessories", len(cached))

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.mu.Lock()
	p.started = true
	p.status.Started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.pollLoop(runCtx)
	return nil
}

// Stop cancels polling and waits for an in-flight pass to finish.
func (p *Platform) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.logger.Info("platform stopped")
	})
}

func (p *Platform) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	p.Discover(ctx) //nolint:errcheck // logged inside

	if p.pollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.Discover(ctx) //nolint:errcheck // logged inside
		}
	}
}

// Discover runs one discovery pass now.
//
// Returns:
//   - accessory.PassResult: Outcome of the pass
//   - error: ErrNotStarted, accessory.ErrPassInProgress, or the pass error
func (p *Platform) Discover(ctx context.Context) (accessory.PassResult, error) {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return accessory.PassResult{}, ErrNotStarted
	}

	result, err := p.reconciler.Run(ctx)
	switch {
	case errors.Is(err, accessory.ErrPassInProgress):
		p.logger.Debug("discovery pass skipped, another is running")
		return result, err
	case errors.Is(err, miele.ErrFetch), errors.Is(err, miele.ErrParse):
		p.logger.Debug("discovery pass abandoned", "error", err)
	case err != nil:
		p.logger.Warn("discovery pass completed with errors", "error", err)
	default:
		p.logger.Info("discovery pass complete",
			"records", result.Records,
			"hoods", result.Hoods,
			"created", result.Count(accessory.OutcomeCreated),
			"reused", result.Count(accessory.OutcomeReused),
			"malformed", result.Malformed,
			"duration", result.Duration)
	}

	p.record(result, err)
	return result, err
}

func (p *Platform) record(result accessory.PassResult, err error) {
	created, reused := result.Count(accessory.OutcomeCreated), result.Count(accessory.OutcomeReused)

	if p.metrics != nil {
		p.metrics.WriteDiscoveryPass(p.bridgeID, influxdb.PassMetrics{
			Records:   result.Records,
			Hoods:     result.Hoods,
			Created:   created,
			Reused:    reused,
			Malformed: result.Malformed,
			Duration:  result.Duration,
			Failed:    err != nil,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Passes++
	p.status.LastPass = result.StartedAt
	p.status.LastError = ""
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.Hoods = result.Hoods
	p.status.Created = created
	p.status.Reused = reused
	p.status.Malformed = result.Malformed
}

// Status returns the outcome of the most recent pass.
func (p *Platform) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Accessories returns copies of all known accessories.
func (p *Platform) Accessories() []*accessory.Entry {
	return p.reconciler.Entries()
}

// Accessory returns one accessory by identity.
func (p *Platform) Accessory(id accessory.Identity) (*accessory.Entry, bool) {
	return p.reconciler.Lookup(id)
}
