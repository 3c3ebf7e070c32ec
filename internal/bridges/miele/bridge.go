package miele

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/mqtt"
	mieleapi "github.com/nerrad567/hood-bridge/internal/miele"
)

const (
	// commandTimeout bounds one cloud call made for a command.
	commandTimeout = 10 * time.Second

	// refreshTimeout bounds a state read during refresh.
	refreshTimeout = 10 * time.Second

	// commandTopicParts is hoodbridge/command/miele/{uniqueId}.
	commandTopicParts = 4
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations. *mqtt.Client implements it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// HoodAPI reads state and sends actions. *miele.Client implements it.
type HoodAPI interface {
	FetchState(ctx context.Context, deviceID string) (mieleapi.DeviceState, error)
	SendAction(ctx context.Context, deviceID string, action mieleapi.Action) error
}

// StateMetrics records hood state samples. *influxdb.Client implements it.
type StateMetrics interface {
	WriteHoodState(m influxdb.HoodStateMetrics)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	BridgeID string
	Version  string

	API        HoodAPI
	MQTTClient MQTTClient

	// Metrics is optional.
	Metrics StateMetrics

	// StateInterval is the periodic state refresh. Zero disables it;
	// state is still read after every command and on attach.
	StateInterval time.Duration

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration

	// Logger is optional.
	Logger Logger
}

// Bridge translates between MQTT and the Miele cloud for every attached hood.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID      string
	api           HoodAPI
	mqtt          MQTTClient
	metrics       StateMetrics
	health        *HealthReporter
	stateInterval time.Duration

	controllers   map[string]*Controller
	controllersMu sync.RWMutex

	// stateCache holds the last published state per hood.
	stateCache   map[string]HoodState
	stateCacheMu sync.Mutex

	// refresh asks the refresh loop to read every hood now.
	refresh chan struct{}

	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("miele API client is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:      opts.BridgeID,
		api:           opts.API,
		mqtt:          opts.MQTTClient,
		metrics:       opts.Metrics,
		stateInterval: opts.StateInterval,
		controllers:   make(map[string]*Controller),
		stateCache:    make(map[string]HoodState),
		refresh:       make(chan struct{}, 1),
		done:          make(chan struct{}),
		ctx:           ctx,
		ctxCancel:     ctxCancel,
		logger:        opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		HoodCount: b.HoodCount,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to hood commands and starts state refresh and health
// reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	topic := mqtt.Topics{}.AllBridgeCommands(Protocol)
	if err := b.mqtt.Subscribe(topic, 1, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", topic)

	b.wg.Add(1)
	go b.refreshLoop(ctx)

	b.health.Start(ctx)

	b.logInfo("bridge started", "bridge_id", b.bridgeID, "hoods", b.HoodCount())
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllBridgeCommands(Protocol)); err != nil {
			b.logDebug("unsubscribe from commands failed", "error", err)
		}
		b.health.Stop()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// Attach gives a hood its controller, replacing any earlier one for the
// same serial. It implements accessory.ControllerFactory.
func (b *Bridge) Attach(entry *accessory.Entry, modelNumber, uniqueID string) {
	c := newController(entry, modelNumber, uniqueID)

	b.controllersMu.Lock()
	_, existed := b.controllers[uniqueID]
	b.controllers[uniqueID] = c
	b.controllersMu.Unlock()

	b.logDebug("controller attached", "unique_id", uniqueID, "identity", entry.Identity, "replaced", existed)

	if !existed {
		select {
		case b.refresh <- struct{}{}:
		default:
		}
	}
}

// Controller returns the controller for a serial number.
func (b *Bridge) Controller(uniqueID string) (*Controller, bool) {
	b.controllersMu.RLock()
	defer b.controllersMu.RUnlock()
	c, ok := b.controllers[uniqueID]
	return c, ok
}

// HoodCount returns how many hoods have controllers.
func (b *Bridge) HoodCount() int {
	b.controllersMu.RLock()
	defer b.controllersMu.RUnlock()
	return len(b.controllers)
}

// handleCommand processes hoodbridge/command/miele/{uniqueId}.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[3] == "" {
		return fmt.Errorf("invalid command topic %q", topic)
	}
	uniqueID := parts[3]

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parsing command: %w", err)
	}

	b.logInfo("received command", "command_id", cmd.ID, "unique_id", uniqueID, "command", cmd.Command)

	c, ok := b.Controller(uniqueID)
	if !ok {
		b.publishAckError(cmd, uniqueID, ErrCodeNotConfigured, fmt.Sprintf("hood %s not attached", uniqueID))
		return nil
	}

	action, hasAction, err := actionFor(cmd)
	if err != nil {
		code := ErrCodeInvalidParameters
		if errors.Is(err, ErrUnknownCommand) {
			code = ErrCodeInvalidCommand
		}
		b.publishAckError(cmd, uniqueID, code, err.Error())
		return nil
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if hasAction {
		if err := b.api.SendAction(ctx, uniqueID, action); err != nil {
			b.health.RecordAPIResult(err)
			code := ErrCodeDeviceUnreachable
			if errors.Is(err, mieleapi.ErrInvalidAction) {
				code = ErrCodeInvalidParameters
			}
			b.publishAckError(cmd, uniqueID, code, err.Error())
			return nil
		}
	}

	b.publishAck(cmd, uniqueID)

	if err := b.readState(ctx, c, true); err != nil {
		b.logWarn("state read after command failed", "unique_id", uniqueID, "error", err)
	}
	return nil
}

// refreshLoop reads every hood on the state interval and on request.
func (b *Bridge) refreshLoop(ctx context.Context) {
	defer b.wg.Done()

	var tick <-chan time.Time
	if b.stateInterval > 0 {
		ticker := time.NewTicker(b.stateInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-tick:
			b.RefreshAll(ctx)
		case <-b.refresh:
			b.RefreshAll(ctx)
		}
	}
}

// RefreshAll reads the state of every attached hood and publishes changes.
func (b *Bridge) RefreshAll(ctx context.Context) {
	b.controllersMu.RLock()
	controllers := make([]*Controller, 0, len(b.controllers))
	for _, c := range b.controllers {
		controllers = append(controllers, c)
	}
	b.controllersMu.RUnlock()

	sort.Slice(controllers, func(i, j int) bool { return controllers[i].UniqueID < controllers[j].UniqueID })

	for _, c := range controllers {
		if ctx.Err() != nil {
			return
		}
		readCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
		err := b.readState(readCtx, c, false)
		cancel()
		if err != nil {
			b.logDebug("state refresh failed", "unique_id", c.UniqueID, "error", err)
		}
	}
}

// readState fetches and publishes one hood's state. Unchanged state is
// only republished when force is set.
func (b *Bridge) readState(ctx context.Context, c *Controller, force bool) error {
	raw, err := b.api.FetchState(ctx, c.UniqueID)
	b.health.RecordAPIResult(err)
	if err != nil {
		return err
	}
	state := hoodStateFrom(raw)

	if b.metrics != nil {
		b.metrics.WriteHoodState(influxdb.HoodStateMetrics{
			UniqueID:    c.UniqueID,
			ModelNumber: c.ModelNumber,
			On:          state.On,
			Light:       state.Light,
			FanSpeed:    state.FanSpeed,
			Status:      state.Status,
		})
	}

	if !force && b.stateUnchanged(c.UniqueID, state) {
		return nil
	}
	return b.publishState(c, state)
}

// stateUnchanged records state and reports whether it matches the cache.
func (b *Bridge) stateUnchanged(uniqueID string, state HoodState) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	prev, ok := b.stateCache[uniqueID]
	b.stateCache[uniqueID] = state
	return ok && prev == state
}

func (b *Bridge) publishState(c *Controller, state HoodState) error {
	b.stateCacheMu.Lock()
	b.stateCache[c.UniqueID] = state
	b.stateCacheMu.Unlock()

	msg := StateMessage{
		UniqueID:    c.UniqueID,
		Identity:    c.Identity.String(),
		Name:        c.Name,
		ModelNumber: c.ModelNumber,
		Timestamp:   time.Now().UTC(),
		State:       state,
		Protocol:    Protocol,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.mqtt.Publish(mqtt.Topics{}.BridgeState(Protocol, c.UniqueID), payload, 1, true)
}

func (b *Bridge) publishAck(cmd CommandMessage, uniqueID string) {
	b.sendAck(NewAckMessage(cmd, uniqueID))
}

func (b *Bridge) publishAckError(cmd CommandMessage, uniqueID, code, message string) {
	b.sendAck(NewAckError(cmd, uniqueID, code, message))
	b.logWarn("command failed", "command_id", cmd.ID, "unique_id", uniqueID, "code", code, "message", message)
}

func (b *Bridge) sendAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.BridgeAck(Protocol, ack.UniqueID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
