// Package server holds the HTTP server configuration.
//
// The serve command exposes run history and snapshots read-only; every route
// requires the configured API key.
package server
