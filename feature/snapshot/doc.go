// Package snapshot keeps a copy of both inventories in object storage before a
// sync run mutates anything.
//
// Recorder plugs into the reconciler as an InventoryObserver: once the source
// and target listings are fetched it uploads them as one JSON object named
// "<UTC timestamp>-<run id>.json" under the configured prefix. When a retention
// is configured the oldest snapshots beyond it are removed after each upload.
//
// Snapshots contain reconcile.Record values only, so balances, currency and
// audit metadata are never written to the bucket.
//
// # Routes
//
//	GET /snapshots        list stored snapshots, oldest first
//	GET /snapshots/:name  fetch one snapshot
package snapshot
