// Package metrics defines the structured event consumed by analytics and the
// sinks that deliver it.
//
// Every engine component reports through the Sink interface: decisions are
// "render" events, toggles "interaction", failures "error" and rollbacks
// "rollback". Sinks must not block the caller for long; AsyncSink buffers
// events and writes them in batches to any BatchWriter, dropping events when
// its buffer is full rather than stalling a decision.
//
//	sink := metrics.Multi(
//	    metrics.NewLogSink(log),
//	    metrics.NewPrometheusSink(prometheus.DefaultRegisterer),
//	)
package metrics
