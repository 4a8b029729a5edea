// Package logger builds the zap logger shared by the CLI commands and the HTTP
// server.
//
// Level "debug" selects zap's development config; anything else uses the
// production config. Format picks the json or console encoder.
//
// # Correlation
//
// WithRun tags every line of a sync with its run id. WithRayID does the same
// for HTTP requests, reading the id the rayid middleware stores on the Fiber
// context.
//
//	logg, _ := logger.New(&cfg.Log)
//	logg = logger.WithRun(logg, runID)
//	logg.Info("Starting sync")
package logger
