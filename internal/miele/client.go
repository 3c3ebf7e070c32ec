package miele

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the device directory of the Miele 3rd-party API.
const DefaultBaseURL = "https://api.mcs3.miele.com/v1/devices"

const (
	// defaultTimeout applies when Config.Timeout is zero and no HTTPClient is given.
	defaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 << 20
)

// Config is the immutable client configuration.
type Config struct {
	// BaseURL is the device directory endpoint. Must be absolute https.
	BaseURL string

	// Token is the pre-provisioned OAuth access token.
	Token string

	// Timeout bounds each request when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client
}

// Client issues requests against the Miele API.
//
// Thread Safety:
//   - Safe for concurrent use; it holds no mutable state.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClient validates cfg and returns a Client.
//
// Returns:
//   - *Client: Ready client
//   - error: ErrInvalidConfig for an empty token or a non-https base URL
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base URL: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q is not an absolute https URL", ErrInvalidConfig, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: u, token: cfg.Token, http: httpClient}, nil
}

// FetchDevices performs one GET of the device directory and returns its
// values in response order. Keys are kept only as DeviceRecord.Handle.
//
// Values that are valid JSON but do not fit DeviceRecord are returned with
// SchemaErr set so the caller can skip them individually.
//
// Returns:
//   - []DeviceRecord: Directory values, possibly empty
//   - error: *FetchError or *ParseError; no records are returned with an error
func (c *Client) FetchDevices(ctx context.Context) ([]DeviceRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body := newBodyReader(resp.Body)
	records, err := decodeDirectory(body)
	if err != nil {
		return nil, body.classify(c.baseURL.String(), err)
	}
	return records, nil
}

// FetchState reads the current state of one device.
func (c *Client) FetchState(ctx context.Context, deviceID string) (DeviceState, error) {
	resp, err := c.do(ctx, http.MethodGet, c.deviceURL(deviceID, "state"), nil)
	if err != nil {
		return DeviceState{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return DeviceState{}, err
	}

	var state DeviceState
	body := newBodyReader(resp.Body)
	if err := json.NewDecoder(body).Decode(&state); err != nil {
		return DeviceState{}, body.classify(resp.Request.URL.String(), err)
	}
	return state, nil
}

// SendAction applies an action to one device.
func (c *Client) SendAction(ctx context.Context, deviceID string, action Action) error {
	if action.IsZero() {
		return ErrInvalidAction
	}
	if step := action.VentilationStep; step != nil && (*step < 0 || *step > MaxVentilationStep) {
		return fmt.Errorf("%w: ventilation step %d out of range 0-%d", ErrInvalidAction, *step, MaxVentilationStep)
	}

	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.deviceURL(deviceID, "actions"), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // drain for reuse

	return checkStatus(resp)
}

// deviceURL returns {base}/{id}/{suffix}.
func (c *Client) deviceURL(deviceID, suffix string) string {
	return c.baseURL.JoinPath(url.PathEscape(deviceID), suffix).String()
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	return resp, nil
}

// bodyReader caps a response body and remembers the first read failure,
// so a connection dropped mid-body is not mistaken for bad JSON.
type bodyReader struct {
	r   io.Reader
	err error
}

func newBodyReader(body io.Reader) *bodyReader {
	return &bodyReader{r: io.LimitReader(body, maxBodySize)}
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && b.err == nil {
		b.err = err
	}
	return n, err
}

// classify turns a decode failure into a FetchError when the body itself
// could not be read (timeout, cancellation, reset) and a ParseError otherwise.
func (b *bodyReader) classify(target string, err error) error {
	if b.err != nil {
		return &FetchError{URL: target, Err: err}
	}
	return &ParseError{Err: err}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // diagnostic only
	msg := string(bytes.TrimSpace(snippet))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ParseError{StatusCode: resp.StatusCode, Err: errors.New(msg)}
}

// decodeDirectory streams a JSON object and returns its values in key
// order. encoding/json maps do not keep order, so the object is walked
// token by token.
func decodeDirectory(r io.Reader) ([]DeviceRecord, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("directory is not a JSON object (starts with %v)", tok)
	}

	records := []DeviceRecord{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading directory key: %w", err)
		}
		handle, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("reading directory value %q: %w", handle, err)
		}

		rec := DeviceRecord{Handle: handle}
		if err := json.Unmarshal(raw, &rec); err != nil {
			rec = DeviceRecord{Handle: handle, SchemaErr: err}
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading directory end: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after directory object")
	}
	return records, nil
}
