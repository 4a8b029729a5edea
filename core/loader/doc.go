// Package loader registers and loads the optional HTTP features.
//
// Each feature implements Feature. Manager.LoadAll skips disabled features,
// so the server starts with whatever backends (database, object storage) are
// configured.
//
//	mgr := loader.NewManager(logg)
//	mgr.Register(history.NewFeature(db, logg))
//	if err := mgr.LoadAll(app); err != nil { ... }
package loader
