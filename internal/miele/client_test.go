package miele

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
)

const scenarioBody = `{
	"a": {"ident":{"type":{"value_raw":18}, "deviceIdentLabel":{"fabNumber":"SN1","techType":"MH1"}, "deviceName":"Hood A"}},
	"b": {"ident":{"type":{"value_raw":7}}}
}`

// fakeAPI is a TLS test server standing in for the Miele cloud.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handler  http.HandlerFunc
}

func newFakeAPI(t *testing.T, handler http.HandlerFunc) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{handler: handler}
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, string(body))
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:    srv.URL + "/v1/devices",
		Token:      "test-token",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return f, client
}

func (f *fakeAPI) last() (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil, ""
	}
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck // test server
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: DefaultBaseURL, Token: "t"}, false},
		{"empty token", Config{BaseURL: DefaultBaseURL, Token: ""}, true},
		{"blank token", Config{BaseURL: DefaultBaseURL, Token: "   "}, true},
		{"http url", Config{BaseURL: "http://api.mcs3.miele.com/v1/devices", Token: "t"}, true},
		{"relative url", Config{BaseURL: "/v1/devices", Token: "t"}, true},
		{"garbage url", Config{BaseURL: "://", Token: "t"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("NewClient() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewClient() error = %v", err)
			}
		})
	}
}

func TestFetchDevices_RequestShape(t *testing.T) {
	api, client := newFakeAPI(t, respond(http.StatusOK, `{}`))

	records, err := client.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}

	req, _ := api.last()
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/v1/devices" {
		t.Errorf("path = %s, want /v1/devices", req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestFetchDevices_Scenario(t *testing.T) {
	_, client := newFakeAPI(t, respond(http.StatusOK, scenarioBody))

	records, err := client.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Handle != "a" || records[1].Handle != "b" {
		t.Errorf("handles = %q, %q; want a, b", records[0].Handle, records[1].Handle)
	}

	hoods, malformed := FilterHoods(records)
	if len(malformed) != 0 {
		t.Errorf("malformed = %v, want none", malformed)
	}
	want := HoodDevice{UniqueID: "SN1", DisplayName: "Hood A", ModelNumber: "MH1"}
	if len(hoods) != 1 || hoods[0] != want {
		t.Errorf("hoods = %+v, want [%+v]", hoods, want)
	}
}

func TestFetchDevices_PreservesKeyOrder(t *testing.T) {
	body := `{"z":{"ident":{"type":{"value_raw":1}}},"m":{"ident":{"type":{"value_raw":2}}},"a":{"ident":{"type":{"value_raw":3}}}}`
	_, client := newFakeAPI(t, respond(http.StatusOK, body))

	records, err := client.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	var got []string
	for _, r := range records {
		got = append(got, r.Handle)
	}
	if len(got) != 3 || got[0] != "z" || got[1] != "m" || got[2] != "a" {
		t.Errorf("order = %v, want [z m a]", got)
	}
}

func TestFetchDevices_ParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, http.StatusUnauthorized},
		{"server error empty body", http.StatusInternalServerError, ``, http.StatusInternalServerError},
		{"invalid json", http.StatusOK, `{"a": {`, 0},
		{"array", http.StatusOK, `[{"ident":{}}]`, 0},
		{"string", http.StatusOK, `"devices"`, 0},
		{"empty body", http.StatusOK, ``, 0},
		{"trailing data", http.StatusOK, `{} {}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newFakeAPI(t, respond(tt.status, tt.body))

			records, err := client.FetchDevices(context.Background())
			if !errors.Is(err, ErrParse) {
				t.Fatalf("FetchDevices() error = %v, want ErrParse", err)
			}
			if errors.Is(err, ErrFetch) {
				t.Error("parse failure also matched ErrFetch")
			}
			if records != nil {
				t.Errorf("records = %v, want nil", records)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestFetchDevices_TransportError(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	client, err := NewClient(Config{BaseURL: srv.URL + "/v1/devices", Token: "t", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	srv.Close()

	records, err := client.FetchDevices(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchDevices() error = %v, want ErrFetch", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestFetchDevices_ContextTimeout(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		respond(http.StatusOK, `{}`)(w, r)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchDevices(ctx)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchDevices() error = %v, want ErrFetch", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error %v does not wrap context.DeadlineExceeded", err)
	}
}

func TestFetchDevices_StalledBodyIsFetchError(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"a": {"ident":`) //nolint:errcheck // test server
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	records, err := client.FetchDevices(ctx)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchDevices() error = %v, want ErrFetch", err)
	}
	if errors.Is(err, ErrParse) {
		t.Error("interrupted body also matched ErrParse")
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestFetchState_StalledBodyIsFetchError(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"status":`) //nolint:errcheck // test server
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := client.FetchState(ctx, "SN1"); !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchState() error = %v, want ErrFetch", err)
	}
}

func TestFetchDevices_SchemaMismatchIsPerRecord(t *testing.T) {
	body := `{"bad":"not-an-object","worse":{"ident":{"type":{"value_raw":"eighteen"}}},"good":` +
		`{"ident":{"type":{"value_raw":18},"deviceIdentLabel":{"fabNumber":"SN9","techType":"DA 1"},"deviceName":"Island"}}}`
	_, client := newFakeAPI(t, respond(http.StatusOK, body))

	records, err := client.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].SchemaErr == nil || records[1].SchemaErr == nil {
		t.Error("expected schema errors on the first two records")
	}

	hoods, malformed := FilterHoods(records)
	if len(hoods) != 1 || hoods[0].UniqueID != "SN9" {
		t.Errorf("hoods = %+v, want SN9 only", hoods)
	}
	if len(malformed) != 2 {
		t.Errorf("len(malformed) = %d, want 2", len(malformed))
	}
}

func TestFetchState(t *testing.T) {
	api, client := newFakeAPI(t, respond(http.StatusOK,
		`{"status":{"value_raw":5,"value_localized":"In use"},"ventilationStep":{"value_raw":3},"light":1}`))

	state, err := client.FetchState(context.Background(), "000123 456")
	if err != nil {
		t.Fatalf("FetchState() error = %v", err)
	}
	if !state.PoweredOn() || !state.LightOn() || state.FanSpeed() != 3 {
		t.Errorf("state = on:%v light:%v fan:%d", state.PoweredOn(), state.LightOn(), state.FanSpeed())
	}

	req, _ := api.last()
	if req.URL.Path != "/v1/devices/000123 456/state" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.URL.RawPath != "" && req.URL.RawPath != "/v1/devices/000123%20456/state" {
		t.Errorf("raw path = %q", req.URL.RawPath)
	}
}

func TestSendAction(t *testing.T) {
	api, client := newFakeAPI(t, respond(http.StatusNoContent, ``))

	tests := []struct {
		name   string
		action Action
		want   map[string]any
	}{
		{"power on", PowerOnAction(), map[string]any{"powerOn": true}},
		{"power off", PowerOffAction(), map[string]any{"powerOff": true}},
		{"light on", LightAction(true), map[string]any{"light": float64(LightOn)}},
		{"light off", LightAction(false), map[string]any{"light": float64(LightOff)}},
		{"fan 0", VentilationAction(0), map[string]any{"ventilationStep": float64(0)}},
		{"fan 4", VentilationAction(4), map[string]any{"ventilationStep": float64(4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.SendAction(context.Background(), "SN1", tt.action); err != nil {
				t.Fatalf("SendAction() error = %v", err)
			}
			req, body := api.last()
			if req.Method != http.MethodPut || req.URL.Path != "/v1/devices/SN1/actions" {
				t.Errorf("request = %s %s", req.Method, req.URL.Path)
			}
			var got map[string]any
			if err := json.Unmarshal([]byte(body), &got); err != nil {
				t.Fatalf("body %q: %v", body, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("body = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("body[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestSendAction_Invalid(t *testing.T) {
	api, client := newFakeAPI(t, respond(http.StatusNoContent, ``))

	if err := client.SendAction(context.Background(), "SN1", Action{}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("empty action error = %v, want ErrInvalidAction", err)
	}
	if err := client.SendAction(context.Background(), "SN1", VentilationAction(5)); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("fan 5 error = %v, want ErrInvalidAction", err)
	}
	if req, _ := api.last(); req != nil {
		t.Error("invalid actions reached the API")
	}
}

func TestSendAction_Rejected(t *testing.T) {
	_, client := newFakeAPI(t, respond(http.StatusBadRequest, `{"message":"device offline"}`))

	err := client.SendAction(context.Background(), "SN1", PowerOnAction())
	var pe *ParseError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadRequest {
		t.Fatalf("SendAction() error = %v, want 400 ParseError", err)
	}
}
