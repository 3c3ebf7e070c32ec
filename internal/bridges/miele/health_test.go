package miele

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func lastHealth(t *testing.T, m *MockMQTTClient) HealthMessage {
	t.Helper()
	published := m.PublishedOn("hoodbridge/health/miele")
	if len(published) == 0 {
		t.Fatal("no health published")
	}
	last := published[len(published)-1]
	if !last.Retained {
		t.Error("health should be retained")
	}
	var msg HealthMessage
	if err := json.Unmarshal(last.Payload, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestHealthReporterDefaultInterval(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != defaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, defaultHealthInterval)
	}
}

func TestHealthReporterPublishNow(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		apiErr     error
		wantStatus HealthStatus
		wantReason string
	}{
		{"healthy", true, nil, HealthHealthy, ""},
		{"mqtt down", false, nil, HealthDegraded, "MQTT disconnected"},
		{"api failing", true, errors.New("timeout"), HealthDegraded, "Miele API unreachable: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockMQTTClient()
			m.setConnected(tt.connected)
			h := NewHealthReporter(HealthReporterConfig{
				BridgeID:  "b1",
				Version:   "1.2.3",
				Publisher: m,
				HoodCount: func() int { return 2 },
			})
			h.RecordAPIResult(tt.apiErr)

			if err := h.PublishNow(); err != nil {
				t.Fatalf("PublishNow() error = %v", err)
			}
			msg := lastHealth(t, m)
			if msg.Status != tt.wantStatus || msg.Reason != tt.wantReason {
				t.Errorf("status = %s %q, want %s %q", msg.Status, msg.Reason, tt.wantStatus, tt.wantReason)
			}
			if msg.Bridge != "b1" || msg.Version != "1.2.3" || msg.HoodsManaged != 2 {
				t.Errorf("message = %+v", msg)
			}
		})
	}
}

func TestHealthReporterRecoversAfterAPISuccess(t *testing.T) {
	m := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{Publisher: m})

	h.RecordAPIResult(errors.New("503"))
	h.RecordAPIResult(nil)

	if status, _ := h.determineStatus(); status != HealthHealthy {
		t.Errorf("status = %s, want healthy", status)
	}
}

func TestHealthReporterStartStop(t *testing.T) {
	m := NewMockMQTTClient()
	h := NewHealthReporter(HealthReporterConfig{Publisher: m, Interval: 10 * time.Millisecond})

	h.Start(t.Context())
	waitFor(t, "periodic health", func() bool { return len(m.PublishedOn("hoodbridge/health/miele")) >= 3 })
	h.Stop()

	if msg := lastHealth(t, m); msg.Status != HealthStopping {
		t.Errorf("final status = %s, want stopping", msg.Status)
	}
}

func TestHealthReporterWithNoPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() error = %v", err)
	}
	h.Stop()
}
