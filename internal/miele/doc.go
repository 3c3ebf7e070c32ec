// Package miele talks to the Miele 3rd-party cloud API.
//
// It provides:
//   - Client.FetchDevices: one authenticated GET of the device directory,
//     decoded into typed DeviceRecord values in response key order
//   - ClassifyHood: the appliance filter that turns a type-18 record into
//     a HoodDevice and drops everything else
//   - Client.FetchState and Client.SendAction: per-device state reads and
//     actions used by the hood controllers
//
// Error taxonomy:
//   - FetchError (ErrFetch): transport failure, nothing was read
//   - ParseError (ErrParse): non-2xx status, invalid JSON, or a body that
//     is not a JSON object
//   - MalformedRecordError (ErrMalformedRecord): one directory value is
//     unusable; the rest of the directory is still valid
//
// The client holds an immutable Config. It never retries; a failed
// request is reported once and the caller decides when to try again.
//
// Usage:
//
//	client, err := miele.NewClient(miele.Config{
//	    BaseURL: miele.DefaultBaseURL,
//	    Token:   token,
//	})
//	records, err := client.FetchDevices(ctx)
//	for _, rec := range records {
//	    hood, ok, err := miele.ClassifyHood(rec)
//	    ...
//	}
package miele
