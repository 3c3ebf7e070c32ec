package miele

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them through errors.Is.
var (
	// ErrInvalidConfig is returned by NewClient for an empty token or a
	// base URL that is not absolute https.
	ErrInvalidConfig = errors.New("miele: invalid client configuration")

	// ErrFetch marks transport failures (DNS, TLS, timeout, reset).
	ErrFetch = errors.New("miele: request failed")

	// ErrParse marks responses that cannot be interpreted.
	ErrParse = errors.New("miele: unexpected response")

	// ErrMalformedRecord marks a single directory value that is unusable.
	ErrMalformedRecord = errors.New("miele: malformed device record")

	// ErrInvalidAction is returned by SendAction for an empty action.
	ErrInvalidAction = errors.New("miele: invalid action")
)

// FetchError is a transport-level failure talking to the API.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("miele: request to %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrFetch as a match.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError is a response that arrived but could not be used.
// StatusCode is zero when the status was fine and the body was not.
type ParseError struct {
	StatusCode int
	Err        error
}

func (e *ParseError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("miele: unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("miele: unparseable response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrParse as a match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MalformedRecordError names the directory entry and the field that made
// it unusable. Err is set when the value did not fit the record schema.
type MalformedRecordError struct {
	Handle string
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("miele: record %q does not match schema: %v", e.Handle, e.Err)
	default:
		return fmt.Sprintf("miele: record %q is missing %s", e.Handle, e.Field)
	}
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Is reports ErrMalformedRecord as a match.
func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }
