// Package database opens the gorm connection used for sync run history.
//
// Two drivers are supported: "sqlite" (the default, a local file or ":memory:")
// and "mysql" for a shared history database. Connect pings the database before
// returning so callers can treat history as optional and carry on without it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("History disabled", zap.Error(err))
//	}
package database
