package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDiscoveryPass = "discovery_pass"
	MeasurementHoodState     = "hood_state"
)

// PassMetrics summarises one discovery pass.
type PassMetrics struct {
	Records   int
	Hoods     int
	Created   int
	Reused    int
	Malformed int
	Duration  time.Duration
	// Failed is set when the pass was abandoned (fetch, parse, or registration).
	Failed bool
}

// HoodStateMetrics is one sample of a hood's operating state.
type HoodStateMetrics struct {
	UniqueID    string
	ModelNumber string
	On          bool
	Light       bool
	FanSpeed    int
	Status      int
}

// WriteDiscoveryPass records the outcome of a discovery pass.
func (c *Client) WriteDiscoveryPass(bridgeID string, m PassMetrics) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(discoveryPassPoint(bridgeID, m, time.Now()))
}

// WriteHoodState records a hood state sample.
func (c *Client) WriteHoodState(m HoodStateMetrics) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(hoodStatePoint(m, time.Now()))
}

func discoveryPassPoint(bridgeID string, m PassMetrics, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementDiscoveryPass,
		map[string]string{"bridge_id": bridgeID},
		map[string]any{
			"records":     m.Records,
			"hoods":       m.Hoods,
			"created":     m.Created,
			"reused":      m.Reused,
			"malformed":   m.Malformed,
			"duration_ms": m.Duration.Milliseconds(),
			"failed":      m.Failed,
		},
		ts)
}

func hoodStatePoint(m HoodStateMetrics, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementHoodState,
		map[string]string{
			"unique_id": m.UniqueID,
			"model":     m.ModelNumber,
		},
		map[string]any{
			"on":        m.On,
			"light":     m.Light,
			"fan_speed": m.FanSpeed,
			"status":    m.Status,
		},
		ts)
}
