// Package api provides the HTTP status API for Hood Bridge.
//
// It exposes the accessory cache and discovery status read-only, plus a
// trigger for an extra discovery pass:
//
//	GET  /api/v1/health            liveness and dependency checks
//	GET  /api/v1/metrics           runtime and discovery counters
//	GET  /api/v1/accessories       every known accessory
//	GET  /api/v1/accessories/{id}  one accessory by identity
//	POST /api/v1/discovery         run a discovery pass now
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
