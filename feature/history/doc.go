// Package history persists sync runs and their decision streams with GORM and
// serves them read-only over HTTP.
//
// Recorder is the reconcile.Sink used by the sync command when history is
// enabled: Start inserts a "running" row, every decision becomes one
// sync_decisions row in processing order, and the final summary closes the run
// as "completed" or, when the context was cancelled, "interrupted". Fatal run
// errors are stored with Fail.
//
// # Routes
//
//	GET /runs        most recent runs (?limit=N, default 20)
//	GET /runs/:id    one run with its decisions
package history
