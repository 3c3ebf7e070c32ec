// Package platform is the host side of Hood Bridge.
//
// A Platform owns the accessory cache and drives the reconciler:
//
//  1. Start loads every cached accessory and hydrates the reconciler
//  2. It then signals ready by running the first discovery pass
//  3. With a poll interval set, further passes follow on a ticker
//  4. Discover runs an extra pass on demand (the status API uses it)
//
// New accessories reach the Host, which persists them to SQLite and
// announces each on hoodbridge/discovery/miele.
//
// Discovery failures never stop the platform. Fetch and parse errors are
// logged at debug and the next pass starts fresh; registration failures
// are logged at warn.
package platform
