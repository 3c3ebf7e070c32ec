package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hood-bridge/internal/miele"
	"github.com/nerrad567/hood-bridge/internal/platform"
)

// fakePlatform implements Platform for testing.
type fakePlatform struct {
	mu          sync.Mutex
	entries     []*accessory.Entry
	status      platform.Status
	result      accessory.PassResult
	discoverErr error
	discovers   int
}

func (f *fakePlatform) Status() platform.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakePlatform) Accessories() []*accessory.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*accessory.Entry(nil), f.entries...)
}

func (f *fakePlatform) Accessory(id accessory.Identity) (*accessory.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Identity == id {
			return e, true
		}
	}
	return nil, false
}

func (f *fakePlatform) Discover(context.Context) (accessory.PassResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovers++
	return f.result, f.discoverErr
}

type fakeCheck struct{ err error }

func (c fakeCheck) HealthCheck(context.Context) error { return c.err }

type fakeHoods int

func (n fakeHoods) HoodCount() int { return int(n) }

func kitchenEntry() *accessory.Entry {
	return &accessory.Entry{
		Identity:    accessory.NewIdentity("SN1"),
		DisplayName: "Kitchen",
		Context: accessory.Context{Device: &miele.HoodDevice{
			UniqueID: "SN1", DisplayName: "Kitchen", ModelNumber: "DA 6498 W",
		}},
		CreatedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func testServer(t *testing.T, p *fakePlatform, checks map[string]HealthChecker) http.Handler {
	t.Helper()

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:   log,
		Platform: p,
		Checks:   checks,
		Hoods:    fakeHoods(1),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv.buildRouter()
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{}, "test", io.Discard)
	if _, err := New(Deps{Platform: &fakePlatform{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without platform should fail")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus string
	}{
		{"no checks", nil, "ok"},
		{"all ok", map[string]HealthChecker{"database": fakeCheck{}, "mqtt": fakeCheck{}}, "ok"},
		{"one failing", map[string]HealthChecker{"database": fakeCheck{}, "mqtt": fakeCheck{errors.New("not connected")}}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, testServer(t, &fakePlatform{}, tt.checks), http.MethodGet, "/api/v1/health")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			resp := decode[HealthResponse](t, rec)
			if resp.Status != tt.wantStatus || resp.Version != "test" {
				t.Errorf("response = %+v", resp)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	h := testServer(t, &fakePlatform{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
}

func TestMetrics(t *testing.T) {
	p := &fakePlatform{
		entries: []*accessory.Entry{kitchenEntry()},
		status:  platform.Status{Started: true, Passes: 3, Reused: 1},
	}
	rec := doRequest(t, testServer(t, p, nil), http.MethodGet, "/api/v1/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decode[SystemMetrics](t, rec)
	if m.Accessories != 1 || m.HoodsManaged != 1 || m.Discovery.Passes != 3 || m.Runtime.Goroutines == 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestListAccessories(t *testing.T) {
	p := &fakePlatform{entries: []*accessory.Entry{kitchenEntry()}}
	rec := doRequest(t, testServer(t, p, nil), http.MethodGet, "/api/v1/accessories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decode[struct {
		Accessories []AccessoryResponse `json:"accessories"`
		Count       int                 `json:"count"`
	}](t, rec)
	if body.Count != 1 || len(body.Accessories) != 1 {
		t.Fatalf("body = %+v", body)
	}
	got := body.Accessories[0]
	if got.UniqueID != "SN1" || got.ModelNumber != "DA 6498 W" || got.Identity != accessory.NewIdentity("SN1").String() {
		t.Errorf("accessory = %+v", got)
	}
}

func TestListAccessories_Empty(t *testing.T) {
	rec := doRequest(t, testServer(t, &fakePlatform{}, nil), http.MethodGet, "/api/v1/accessories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if list, ok := body["accessories"].([]any); !ok || len(list) != 0 {
		t.Errorf("accessories = %v, want empty array", body["accessories"])
	}
}

func TestGetAccessory(t *testing.T) {
	p := &fakePlatform{entries: []*accessory.Entry{kitchenEntry()}}
	h := testServer(t, p, nil)

	tests := []struct {
		name string
		id   string
		want int
	}{
		{"found", accessory.NewIdentity("SN1").String(), http.StatusOK},
		{"unknown", accessory.NewIdentity("SN2").String(), http.StatusNotFound},
		{"not a uuid", "kitchen", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodGet, "/api/v1/accessories/"+tt.id)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	created := accessory.Decision{Identity: accessory.NewIdentity("SN1"), UniqueID: "SN1", Outcome: accessory.OutcomeCreated}

	tests := []struct {
		name     string
		result   accessory.PassResult
		err      error
		wantCode int
		wantErr  string
	}{
		{"success", accessory.PassResult{Records: 2, Hoods: 1, Ignored: 1, Decisions: []accessory.Decision{created}}, nil, http.StatusOK, ""},
		{"in progress", accessory.PassResult{}, accessory.ErrPassInProgress, http.StatusConflict, ErrCodeConflict},
		{"not started", accessory.PassResult{}, platform.ErrNotStarted, http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"fetch", accessory.PassResult{}, &miele.FetchError{URL: "https://x", Err: errors.New("reset")}, http.StatusBadGateway, ErrCodeUpstream},
		{"parse", accessory.PassResult{}, &miele.ParseError{StatusCode: 401}, http.StatusBadGateway, ErrCodeUpstream},
		{"registration", accessory.PassResult{Hoods: 1}, accessory.ErrRegistration, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlatform{result: tt.result, discoverErr: tt.err}
			rec := doRequest(t, testServer(t, p, nil), http.MethodPost, "/api/v1/discovery")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if e := decode[Error](t, rec); e.Code != tt.wantErr {
					t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
				}
				return
			}
			resp := decode[DiscoveryResponse](t, rec)
			if resp.Hoods != tt.result.Hoods || resp.Created != tt.result.Count(accessory.OutcomeCreated) {
				t.Errorf("response = %+v", resp)
			}
			if (tt.err != nil) != (resp.Error != "") {
				t.Errorf("error field = %q", resp.Error)
			}
		})
	}
}

func TestDiscover_MethodNotAllowed(t *testing.T) {
	rec := doRequest(t, testServer(t, &fakePlatform{}, nil), http.MethodGet, "/api/v1/discovery")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	srv, err := New(Deps{Logger: log, Platform: &fakePlatform{}})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := doRequest(t, h, http.MethodGet, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServerHealthCheck_NotStarted(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{}, "test", io.Discard)
	srv, err := New(Deps{Logger: log, Platform: &fakePlatform{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}
