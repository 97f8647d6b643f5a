package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/logger"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/rollback"
	"github.com/dmitrymomot/rollout/pkg/rollout"
)

// Session returns the state of an identity, creating it on first use.
func (e *Engine) Session(id identity.Identity) (*Session, error) {
	if id.IsZero() {
		return nil, identity.ErrNoIdentity
	}
	s, _ := e.sessions.GetOrCreate(id.Key(), func() *Session { return e.newSession(id) })
	return s, nil
}

// LookupSession returns an existing session without creating one.
func (e *Engine) LookupSession(id identity.Identity) (*Session, bool) {
	return e.sessions.Peek(id.Key())
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int { return e.sessions.Len() }

// newSession restores the rollbacks an evicted session of the same identity
// had, so a rolled back variant stays on baseline.
func (e *Engine) newSession(id identity.Identity) *Session {
	key := id.Key()
	s := &Session{Session: rollout.NewSession(id, e.killSwitch)}

	e.pinnedMu.Lock()
	pinned := slices.Clone(e.pinned[key])
	e.pinnedMu.Unlock()

	opts := []rollback.Option{
		rollback.WithSink(e.sink),
		rollback.WithLogger(e.log.With(logger.Identity(key))),
		rollback.WithSessionLimit(e.sessionLimit),
		rollback.WithRolledBack(pinned...),
		rollback.OnRollback(func(ctx context.Context, t rollback.Trigger) {
			e.pin(key, t.Variant)
			s.MarkRolledBack(t.Variant)
		}),
	}
	for variant, p := range e.rollbackByName {
		opts = append(opts, rollback.WithVariantPolicy(variant, p))
	}
	s.Monitor = rollback.NewMonitor(e.rollbackDefault, opts...)

	for _, variant := range pinned {
		s.MarkRolledBack(variant)
	}
	return s
}

func (e *Engine) pin(key, variant string) {
	e.pinnedMu.Lock()
	defer e.pinnedMu.Unlock()
	if !slices.Contains(e.pinned[key], variant) {
		e.pinned[key] = append(e.pinned[key], variant)
	}
}

// Decide returns the record of a variant for the identity against the
// active flags.
func (e *Engine) Decide(ctx context.Context, id identity.Identity, variant string) (rollout.Record, error) {
	p, err := e.Policy(variant)
	if err != nil {
		return rollout.Record{}, err
	}
	s, err := e.Session(id)
	if err != nil {
		return rollout.Record{}, err
	}

	// The monitor flips before its listeners run; read it first so a
	// concurrent rollback is never answered with treatment.
	var rec rollout.Record
	if s.Monitor.RolledBack(variant) {
		rec, _ = s.MarkRolledBack(variant)
	} else {
		rec = s.Decide(p, e.Flags())
	}
	e.log.DebugContext(ctx, "variant decided",
		logger.Variant(variant),
		logger.Identity(id.Key()),
		logger.Bucket(rec.Bucket),
		logger.Arm(string(rec.Arm)),
		logger.Reason(string(rec.Reason)),
	)
	return rec, nil
}

// DecideCurrent resolves the identity with the configured provider.
func (e *Engine) DecideCurrent(ctx context.Context, variant string) (rollout.Record, error) {
	id, err := e.idp.Identity(ctx)
	if err != nil {
		return rollout.Record{}, err
	}
	return e.Decide(ctx, id, variant)
}

// Observe feeds an outcome to the identity's rollback monitor and reports
// whether it rolled the variant back.
func (e *Engine) Observe(ctx context.Context, id identity.Identity, variant string, o rollback.Outcome) (bool, error) {
	if _, err := e.Policy(variant); err != nil {
		return false, err
	}
	s, err := e.Session(id)
	if err != nil {
		return false, err
	}
	return s.Monitor.Observe(ctx, variant, o), nil
}

// Trail returns the decisions made for the identity, oldest first.
func (e *Engine) Trail(id identity.Identity) []rollout.Record {
	s, ok := e.LookupSession(id)
	if !ok {
		return nil
	}
	return s.Trail()
}

// Execute runs treatment or baseline as decided for the identity. When the
// treatment fails, the failure is reported as ErrVariantEvaluation, counted
// by the rollback monitor, and baseline runs instead for this call. The
// returned error is baseline's.
func (e *Engine) Execute(ctx context.Context, id identity.Identity, variant string, treatment, baseline func(context.Context) error) (rollout.Record, error) {
	rec, err := e.Decide(ctx, id, variant)
	if err != nil {
		return rec, err
	}
	if !rec.IsTreatment() {
		return rec, baseline(ctx)
	}

	s, err := e.Session(id)
	if err != nil {
		return rec, err
	}

	start := time.Now()
	terr := treatment(ctx)
	elapsed := time.Since(start)

	if terr == nil {
		s.Monitor.Observe(ctx, variant, rollback.Outcome{Kind: rollback.OutcomeSuccess, Latency: elapsed})
		return rec, nil
	}

	verr := errors.Join(rollout.ErrVariantEvaluation, terr)
	e.log.WarnContext(ctx, "treatment failed, falling back to baseline",
		logger.Variant(variant),
		logger.Identity(id.Key()),
		logger.Error(verr),
	)
	if serr := e.sink.Emit(ctx, metrics.NewEvent(metrics.EventError, variant, map[string]any{
		"error":      verr.Error(),
		"latency_ms": elapsed.Milliseconds(),
	})); serr != nil {
		e.log.DebugContext(ctx, "metrics sink rejected event", logger.Error(serr))
	}
	s.Monitor.Observe(ctx, variant, rollback.Outcome{Kind: rollback.OutcomeError, Latency: elapsed})

	fallback := rec
	fallback.Implementation = rollout.Baseline
	return fallback, baseline(ctx)
}
