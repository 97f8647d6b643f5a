// Package rollback watches the outcomes of treatment code and rolls a
// variant back to baseline when it misbehaves.
//
// A Monitor keeps, per variant, a consecutive error counter and a ring of the
// last Policy.Window outcomes. Any of three triggers rolls the variant back:
// ConsecutiveErrorLimit errors in a row, an error rate at or above
// ErrorRateThreshold once MinSamples outcomes are in, or a latency at or
// above BaselineLatency times PerformanceDegradationFactor.
//
// Rollback is one way. The first trigger wins a compare-and-swap, emits one
// metrics.EventRollback and calls the OnRollback listeners; later outcomes
// are counted but never fire again.
//
//	m := rollback.NewMonitor(rollback.DefaultPolicy(),
//	    rollback.WithSink(sink),
//	    rollback.WithSessionLimit(3),
//	    rollback.OnRollback(func(ctx context.Context, t rollback.Trigger) {
//	        session.MarkRolledBack(t.Variant)
//	    }),
//	)
//	m.Observe(ctx, "checkout-v2", rollback.Failure())
package rollback
