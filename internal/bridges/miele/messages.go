package miele

import (
	"time"

	mieleapi "github.com/nerrad567/hood-bridge/internal/miele"
)

// Protocol is the topic segment of every bridge topic.
const Protocol = "miele"

// Command names accepted on hoodbridge/command/miele/{uniqueId}.
const (
	CommandOn          = "on"
	CommandOff         = "off"
	CommandLightOn     = "light_on"
	CommandLightOff    = "light_off"
	CommandSetFanSpeed = "set_fan_speed"
	CommandReadState   = "read_state"
)

// CommandMessage is a request to operate one hood.
type CommandMessage struct {
	// ID correlates the command with its acknowledgment.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// Command is one of the Command* names.
	Command string `json:"command"`

	// Parameters carries command arguments, e.g. {"speed": 2}.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the cloud API accepted the action.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)

// AckMessage reports the outcome of a command.
// Topic: hoodbridge/ack/miele/{uniqueId}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	UniqueID  string    `json:"unique_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HoodState is the bridge's view of a hood's operating state.
type HoodState struct {
	On       bool `json:"on"`
	Light    bool `json:"light"`
	FanSpeed int  `json:"fan_speed"`
	Status   int  `json:"status"`
}

// hoodStateFrom reduces a cloud state document to a HoodState.
func hoodStateFrom(s mieleapi.DeviceState) HoodState {
	return HoodState{
		On:       s.PoweredOn(),
		Light:    s.LightOn(),
		FanSpeed: s.FanSpeed(),
		Status:   s.Status.Raw(),
	}
}

// StateMessage is published whenever a hood's state is read.
// Topic: hoodbridge/state/miele/{uniqueId}
// QoS: 1, Retained: Yes
type StateMessage struct {
	UniqueID    string    `json:"unique_id"`
	Identity    string    `json:"identity"`
	Name        string    `json:"name"`
	ModelNumber string    `json:"model_number"`
	Timestamp   time.Time `json:"timestamp"`
	State       HoodState `json:"state"`
	Protocol    string    `json:"protocol"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: hoodbridge/health/miele
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	HoodsManaged  int          `json:"hoods_managed"`
	Reason        string       `json:"reason,omitempty"`
}

// NewAckMessage creates a successful acknowledgment.
func NewAckMessage(cmd CommandMessage, uniqueID string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		UniqueID:  uniqueID,
		Status:    AckAccepted,
		Protocol:  Protocol,
	}
}

// NewAckError creates a failed acknowledgment.
func NewAckError(cmd CommandMessage, uniqueID, code, message string) AckMessage {
	ack := NewAckMessage(cmd, uniqueID)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, hoods int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		HoodsManaged:  hoods,
	}
}
