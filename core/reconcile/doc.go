// Package reconcile brings a target chart of accounts into line with a source
// chart of accounts held in a different remote store.
//
// The two stores may name the same account differently (for example
// "1000 - Cash" on one side and "Cash" on the other), so every cross-store match
// goes through a normalized key rather than the raw identifying name.
//
// # Architecture
//
// The package consists of five parts, leaves first:
//
// 1. Normalizer: Normalize turns a display or identifying name into the key used
//    for matching (numeric prefix dropped, whitespace collapsed, lower-cased).
//
// 2. Hierarchy: BuildHierarchy resolves each source record's parent reference
//    and assigns it a depth from its root. Orphans land at depth 1 and cycles are
//    broken at depth 0.
//
// 3. MatchTable: the run-scoped map from normalized key to the target-side
//    record. It is seeded from the target inventory and grows as records are
//    created so later records can find freshly created parents.
//
// 4. Differ: Compare reports the fields that differ between a source record and
//    its target counterpart.
//
// 5. Reconciler: walks the source records level by level (parents before
//    children), ensures every parent exists in the target, and issues create or
//    update calls through the Store contract.
//
// # Protected fields
//
// Balances, currency and audit metadata are never part of a Record. Adapters
// drop them when decoding remote documents and payloads are always built from
// the fixed field allow-list, so they can neither be compared nor written.
//
// # Usage Example
//
//	r := reconcile.New(sourceStore, targetStore, reconcile.Options{
//	    DryRun:           true,
//	    MaxParentRetries: 5,
//	    RetryDelay:       time.Second,
//	}, logger)
//
//	result, err := r.Run(ctx)
//	if err != nil {
//	    // only a failed inventory listing (or cancellation) ends up here
//	}
//	fmt.Println(result.Summary.Created, result.Summary.Updated)
package reconcile
