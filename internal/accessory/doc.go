// Package accessory turns discovered hoods into accessories, each
// registered with the host exactly once over the device's lifetime.
//
// The pieces:
//   - Identity: a name-based UUID of a hood's serial number
//   - Entry: one accessory as persisted in the cache
//   - Reconciler: hydrated from the cache, then run once per discovery
//     pass; every hood either reuses its entry or creates and registers one
//   - SQLiteStore: the accessories table backing the cache
//
// Lifecycle:
//
//	rec, _ := accessory.NewReconciler(accessory.Options{
//	    Fetcher:     mieleClient,
//	    Host:        host,
//	    Controllers: bridge,
//	})
//	for _, e := range cached {
//	    rec.Hydrate(e)
//	}
//	result, err := rec.Run(ctx) // first Run closes hydration
//
// Entries are never removed. A hood that disappears from the directory
// keeps its entry and is reused if it returns.
package accessory
