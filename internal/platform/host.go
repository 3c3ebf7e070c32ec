package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/mqtt"
)

// Protocol is the topic segment used for announcements.
const Protocol = "miele"

// Announcer publishes JSON messages. *mqtt.Client implements it.
type Announcer interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Announcement is published for every newly registered accessory.
type Announcement struct {
	Event       string    `json:"event"`
	BridgeID    string    `json:"bridge_id"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	UniqueID    string    `json:"unique_id"`
	ModelNumber string    `json:"model_number,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Host implements accessory.Host: it persists new entries to the store
// and announces them.
type Host struct {
	store     accessory.Store
	announcer Announcer
	bridgeID  string
	logger    Logger
}

// NewHost creates a Host. announcer may be nil when MQTT is disabled.
func NewHost(store accessory.Store, announcer Announcer, bridgeID string, logger Logger) *Host {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Host{store: store, announcer: announcer, bridgeID: bridgeID, logger: logger}
}

// RegisterNewAccessories persists entries and then announces each one.
// Only a persistence failure is returned; an entry that is stored has
// been registered even if its announcement is lost.
func (h *Host) RegisterNewAccessories(ctx context.Context, entries []*accessory.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := h.store.Create(ctx, entries...); err != nil {
		return fmt.Errorf("persisting accessories: %w", err)
	}

	for _, e := range entries {
		h.logger.Info("accessory registered", "name", e.DisplayName, "identity", e.Identity)
		if h.announcer == nil {
			continue
		}
		if err := h.announcer.PublishJSON(mqtt.Topics{}.BridgeDiscovery(Protocol), announcementFor(h.bridgeID, e), true); err != nil {
			h.logger.Warn("announcing accessory failed", "identity", e.Identity, "error", err)
		}
	}
	return nil
}

func announcementFor(bridgeID string, e *accessory.Entry) Announcement {
	a := Announcement{
		Event:       "accessory_registered",
		BridgeID:    bridgeID,
		Identity:    e.Identity.String(),
		DisplayName: e.DisplayName,
		UniqueID:    e.UniqueID(),
		Timestamp:   e.CreatedAt,
	}
	if e.Context.Device != nil {
		a.ModelNumber = e.Context.Device.ModelNumber
	}
	return a
}
