// Package config loads the account-sync configuration.
//
// Values come from a .env file (if present) and the environment, mapped onto
// nested keys by replacing "." with "_": SOURCE_URL sets source.url,
// SYNC_DRY_RUN sets sync.dry_run. Defaults live in the `default` struct tags
// of each section's Config type.
//
// # Sections
//
//   - Source, Target: ERPNext site URL and API token
//   - Sync: reconciliation options (dry run, company, parent retries, concurrency)
//   - Server: HTTP port and API key for the read-only API
//   - Storage: MinIO/S3 bucket for inventory snapshots
//   - Database: run history database (sqlite or mysql)
//   - Log: level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
