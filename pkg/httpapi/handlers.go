package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/rollout/pkg/engine"
	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/rollback"
	"github.com/dmitrymomot/rollout/pkg/rollout"
	"github.com/dmitrymomot/rollout/pkg/source"
)

type handlers struct {
	eng *engine.Engine
}

func hasFlagParams(r *http.Request) bool {
	return len(source.QueryValues(r.URL.Query())) > 0
}

func (h handlers) listFlags(w http.ResponseWriter, r *http.Request) {
	flags := h.eng.Flags()
	preview := hasFlagParams(r)
	if preview {
		flags = h.eng.Preview(r.URL.Query())
	}
	ok(w, flags.Entries(), map[string]any{"preview": preview})
}

func entryOf(flags *feature.FlagSet, name string) feature.Entry {
	by, _ := flags.ExpandedBy(name)
	return feature.Entry{Name: name, Value: flags.String(name), Origin: flags.Origin(name), ExpandedBy: by}
}

type toggleRequest struct {
	Value string `json:"value"`
}

func (h handlers) toggleFlag(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	flags, err := h.eng.Toggle(r.Context(), name, req.Value)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, entryOf(flags, name), nil)
}

func (h handlers) applyQuery(w http.ResponseWriter, r *http.Request) {
	flags := h.eng.ApplyQuery(r.Context(), r.URL.Query())
	ok(w, flags.Entries(), nil)
}

func (h handlers) reset(w http.ResponseWriter, r *http.Request) {
	err := h.eng.Reset(r.Context())
	if err != nil && !errors.Is(err, engine.ErrPersistenceWrite) {
		fail(w, err)
		return
	}
	ok(w, h.eng.Flags().Entries(), map[string]any{"persisted": err == nil})
}

func (h handlers) listVariants(w http.ResponseWriter, _ *http.Request) {
	ok(w, h.eng.Policies(), nil)
}

func (h handlers) decision(w http.ResponseWriter, r *http.Request) {
	variant := chi.URLParam(r, "variant")
	id, _ := identity.FromContext(r.Context())
	rec, err := h.eng.Decide(r.Context(), id, variant)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, rec, map[string]any{"identity": id.Key()})
}

type outcomeRequest struct {
	Kind      string `json:"kind"`
	LatencyMS int64  `json:"latency_ms"`
}

func (h handlers) outcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	kind, valid := rollback.ParseOutcomeKind(req.Kind)
	if !valid || req.LatencyMS < 0 {
		fail(w, errBadOutcome)
		return
	}

	variant := chi.URLParam(r, "variant")
	id, _ := identity.FromContext(r.Context())
	o := rollback.Outcome{Kind: kind, Latency: time.Duration(req.LatencyMS) * time.Millisecond}
	rolled, err := h.eng.Observe(r.Context(), id, variant, o)
	if err != nil {
		fail(w, err)
		return
	}

	snap := rollback.Snapshot{Variant: variant, RolledBack: rolled}
	if s, found := h.eng.LookupSession(id); found {
		snap = s.Monitor.Snapshot(variant)
	}
	ok(w, snap, map[string]any{"triggered": rolled})
}

func (h handlers) trail(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	trail := h.eng.Trail(id)
	if trail == nil {
		trail = []rollout.Record{}
	}
	ok(w, trail, map[string]any{"identity": id.Key()})
}

type eventRequest struct {
	Type    metrics.EventType `json:"type"`
	Variant string            `json:"variant"`
	Payload map[string]any    `json:"payload"`
}

func (h handlers) event(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Type != metrics.EventRender && req.Type != metrics.EventInteraction {
		fail(w, errBadEventType)
		return
	}
	ev := metrics.NewEvent(req.Type, req.Variant, req.Payload)
	if err := h.eng.Emit(r.Context(), ev); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Envelope{Data: map[string]string{"id": ev.ID}})
}
