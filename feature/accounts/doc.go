// Package accounts binds the reconciliation engine to Frappe "Account" resources.
//
// Store implements reconcile.Store on top of a remote Resource (normally a
// *remote.Client). It is the only place where remote documents become Records:
//
//   - listings request ListFields only and are scoped by company both in the
//     request filters and again client-side
//   - DecodeRecord reads the compared fields and nothing else, so balances,
//     currency and audit metadata (ProtectedFields) never reach the engine
//   - EncodePayload drops protected fields from outgoing bodies
//   - remote.APIError becomes reconcile.RemoteRejectedError and
//     remote.TransportError becomes reconcile.TransientError
//
// # Usage
//
//	source := accounts.NewRemoteStore(cfg.Source, "source", logger)
//	target := accounts.NewRemoteStore(cfg.Target, "target", logger)
//	res, err := reconcile.New(source, target, cfg.Sync.Options(), logger).Run(ctx)
package accounts
