// Package engine wires sources, resolution, rollout decisions and rollback
// into one long-lived object.
//
// The active flag set is an immutable snapshot behind an atomic pointer.
// Reload, Toggle, ApplyQuery and Reset each build a new snapshot and swap
// it in; Flags never blocks and never sees a half-applied change.
//
// Toggled overrides persist through a single background writer. Writes
// coalesce, failures are logged as ErrPersistenceWrite and the in-memory
// state is kept.
//
// Each identity gets a Session: rollout decisions plus its own rollback
// monitor. Sessions live in a bounded LRU.
//
//	eng, err := engine.New(catalog,
//	    engine.WithLogger(log),
//	    engine.WithStore(st),
//	    engine.WithSource(source.Env(catalog)),
//	    engine.WithSource(source.Remote(fetcher, 2*time.Second)),
//	    engine.WithPolicies(policies),
//	    engine.WithRefreshInterval(time.Minute),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = eng.Start(ctx)
//	defer eng.Close(ctx)
//
//	rec, err := eng.Execute(ctx, id, "checkout-v2", newCheckout, oldCheckout)
package engine
