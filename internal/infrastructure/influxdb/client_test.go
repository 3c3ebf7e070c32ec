package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/ping"):
		w.WriteHeader(http.StatusNoContent)
	case strings.HasSuffix(r.URL.Path, "/api/v2/write"):
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "hoodbridge",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	client, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(testConfig(url))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNilClient_NoOps(t *testing.T) {
	var c *Client

	c.WriteDiscoveryPass("hoodbridge", PassMetrics{Hoods: 1})
	c.WriteHoodState(HoodStateMetrics{UniqueID: "SN1"})
	c.Flush()

	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestWriteDiscoveryPass_ReachesServer(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	client.WriteDiscoveryPass("hoodbridge", PassMetrics{Records: 3, Hoods: 2, Created: 1, Reused: 1})
	client.WriteHoodState(HoodStateMetrics{UniqueID: "SN1", ModelNumber: "MH1", On: true, FanSpeed: 2})
	client.Flush()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got := fake.body()
		if strings.Contains(got, MeasurementDiscoveryPass) && strings.Contains(got, MeasurementHoodState) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("points not written, server saw %q", fake.body())
}

func TestPoints(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	p := discoveryPassPoint("hb", PassMetrics{Created: 2, Duration: 1500 * time.Millisecond, Failed: true}, ts)
	if p.Name() != MeasurementDiscoveryPass {
		t.Errorf("Name() = %q", p.Name())
	}
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["created"] != int64(2) {
		t.Errorf("created = %v (%T), want 2", fields["created"], fields["created"])
	}
	if fields["duration_ms"] != int64(1500) {
		t.Errorf("duration_ms = %v, want 1500", fields["duration_ms"])
	}
	if fields["failed"] != true {
		t.Errorf("failed = %v, want true", fields["failed"])
	}

	h := hoodStatePoint(HoodStateMetrics{UniqueID: "SN1", ModelNumber: "MH1"}, ts)
	tags := map[string]string{}
	for _, tag := range h.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["unique_id"] != "SN1" || tags["model"] != "MH1" {
		t.Errorf("tags = %v", tags)
	}
}
