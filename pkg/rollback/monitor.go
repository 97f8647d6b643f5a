package rollback

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/rollout/pkg/logger"
	"github.com/dmitrymomot/rollout/pkg/metrics"
)

// Listener is called once when a variant rolls back.
type Listener func(ctx context.Context, t Trigger)

// Option configures a Monitor.
type Option func(*Monitor)

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

func WithSink(s metrics.Sink) Option {
	return func(m *Monitor) {
		if s != nil {
			m.sink = s
		}
	}
}

// WithVariantPolicy overrides the default policy for one variant.
func WithVariantPolicy(variant string, p Policy) Option {
	return func(m *Monitor) { m.policies[variant] = p.normalized() }
}

// WithSessionLimit sets how many distinct variants may roll back before
// ErrRollbackThresholdExceeded is reported. Zero disables the check.
func WithSessionLimit(n int) Option {
	return func(m *Monitor) { m.sessionLimit = int64(n) }
}

// WithRolledBack starts the monitor with variants already rolled back. No
// event is emitted and listeners are not called for them.
func WithRolledBack(variants ...string) Option {
	return func(m *Monitor) { m.restored = append(m.restored, variants...) }
}

// OnRollback registers a listener.
func OnRollback(l Listener) Option {
	return func(m *Monitor) {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
}

type variantState struct {
	policy       Policy
	window       *window
	consecutive  atomic.Int64
	observations atomic.Int64
	rolledBack   atomic.Bool
	trigger      atomic.Pointer[Trigger]
}

// Monitor watches variant outcomes and rolls variants back. Observe is safe
// for concurrent use; counters are atomics.
type Monitor struct {
	defaults     Policy
	policies     map[string]Policy
	sessionLimit int64
	sink         metrics.Sink
	log          *slog.Logger
	listeners    []Listener
	restored     []string

	variants   sync.Map // string -> *variantState
	rolledBack atomic.Int64
}

// NewMonitor creates a monitor using def for variants without an override.
func NewMonitor(def Policy, opts ...Option) *Monitor {
	m := &Monitor{
		defaults: def.normalized(),
		policies: make(map[string]Policy),
		sink:     metrics.Discard,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, variant := range m.restored {
		if m.state(variant).rolledBack.CompareAndSwap(false, true) {
			m.rolledBack.Add(1)
		}
	}
	return m
}

func (m *Monitor) state(variant string) *variantState {
	if v, ok := m.variants.Load(variant); ok {
		return v.(*variantState)
	}
	p, ok := m.policies[variant]
	if !ok {
		p = m.defaults
	}
	v, _ := m.variants.LoadOrStore(variant, &variantState{policy: p, window: newWindow(p.Window)})
	return v.(*variantState)
}

// Observe records an outcome and reports whether it rolled the variant back.
// Outcomes for a rolled back variant are still counted but never trigger
// again.
func (m *Monitor) Observe(ctx context.Context, variant string, o Outcome) bool {
	st := m.state(variant)
	st.observations.Add(1)

	isErr := o.Kind == OutcomeError
	st.window.add(isErr)

	var consecutive int64
	if isErr {
		consecutive = st.consecutive.Add(1)
	} else {
		st.consecutive.Store(0)
	}

	if st.rolledBack.Load() {
		return false
	}

	p := st.policy
	samples, errs := st.window.stats()
	rate := 0.0
	if samples > 0 {
		rate = float64(errs) / float64(samples)
	}

	t := Trigger{
		Variant:           variant,
		ConsecutiveErrors: consecutive,
		ErrorRate:         rate,
		Samples:           samples,
		Latency:           o.Latency,
	}
	switch {
	case isErr && p.ConsecutiveErrorLimit > 0 && consecutive >= int64(p.ConsecutiveErrorLimit):
		t.Reason = ReasonConsecutiveErrors
	case p.ErrorRateThreshold > 0 && samples >= int64(p.MinSamples) && rate >= p.ErrorRateThreshold:
		t.Reason = ReasonErrorRate
	case p.latencyLimit() > 0 && o.Latency >= p.latencyLimit():
		t.Reason = ReasonLatency
	default:
		return false
	}

	if !st.rolledBack.CompareAndSwap(false, true) {
		return false
	}
	t.At = time.Now().UTC()
	st.trigger.Store(&t)
	m.fire(ctx, t)
	return true
}

func (m *Monitor) fire(ctx context.Context, t Trigger) {
	m.log.WarnContext(ctx, "variant rolled back",
		logger.Variant(t.Variant),
		logger.Reason(string(t.Reason)),
		slog.Int64("consecutive_errors", t.ConsecutiveErrors),
		slog.Float64("error_rate", t.ErrorRate),
		slog.Int64("samples", t.Samples),
	)

	payload := map[string]any{
		"reason":             string(t.Reason),
		"consecutive_errors": t.ConsecutiveErrors,
		"error_rate":         t.ErrorRate,
		"samples":            t.Samples,
	}
	if t.Latency > 0 {
		payload["latency_ms"] = t.Latency.Milliseconds()
	}
	m.emit(ctx, metrics.NewEvent(metrics.EventRollback, t.Variant, payload))

	for _, l := range m.listeners {
		l(ctx, t)
	}

	n := m.rolledBack.Add(1)
	if m.sessionLimit > 0 && n == m.sessionLimit {
		m.log.WarnContext(ctx, "too many variants rolled back",
			slog.Int64("rolled_back", n),
			slog.Int64("limit", m.sessionLimit),
			logger.Error(ErrRollbackThresholdExceeded),
		)
		m.emit(ctx, metrics.NewEvent(metrics.EventError, t.Variant, map[string]any{
			"error":       ErrRollbackThresholdExceeded.Error(),
			"rolled_back": m.RolledBackVariants(),
		}))
	}
}

func (m *Monitor) emit(ctx context.Context, e metrics.Event) {
	if err := m.sink.Emit(ctx, e); err != nil {
		m.log.DebugContext(ctx, "metrics sink rejected event",
			logger.EventType(string(e.Type)),
			logger.Error(err),
		)
	}
}

// RolledBack reports whether the variant has rolled back.
func (m *Monitor) RolledBack(variant string) bool {
	v, ok := m.variants.Load(variant)
	return ok && v.(*variantState).rolledBack.Load()
}

// RolledBackVariants lists rolled back variants in sorted order.
func (m *Monitor) RolledBackVariants() []string {
	var out []string
	m.variants.Range(func(k, v any) bool {
		if v.(*variantState).rolledBack.Load() {
			out = append(out, k.(string))
		}
		return true
	})
	slices.Sort(out)
	return out
}

// ThresholdExceeded reports whether the session limit has been reached.
func (m *Monitor) ThresholdExceeded() bool {
	return m.sessionLimit > 0 && m.rolledBack.Load() >= m.sessionLimit
}

// Snapshot returns the counters of a variant. Unknown variants give a zero
// snapshot.
func (m *Monitor) Snapshot(variant string) Snapshot {
	snap := Snapshot{Variant: variant}
	v, ok := m.variants.Load(variant)
	if !ok {
		return snap
	}
	st := v.(*variantState)
	snap.Observations = st.observations.Load()
	snap.Samples, snap.WindowErrors = st.window.stats()
	if snap.Samples > 0 {
		snap.ErrorRate = float64(snap.WindowErrors) / float64(snap.Samples)
	}
	snap.ConsecutiveErrors = st.consecutive.Load()
	snap.RolledBack = st.rolledBack.Load()
	snap.Trigger = st.trigger.Load()
	return snap
}
