package rollout

import (
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/rollout/pkg/bucket"
	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/identity"
)

type cached struct {
	record Record
	flags  *feature.FlagSet
}

// Session holds the decisions made for one identity: memoised buckets, the
// current record per variant and the append-only trail.
type Session struct {
	id         identity.Identity
	killSwitch string

	mu         sync.Mutex
	buckets    map[string]bucket.Assignment
	records    map[string]cached
	rolledBack map[string]struct{}
	trail      []Record
}

// NewSession starts an empty session. killSwitch names the bool flag that
// forces every variant to baseline; empty disables the check.
func NewSession(id identity.Identity, killSwitch string) *Session {
	return &Session{
		id:         id,
		killSwitch: killSwitch,
		buckets:    make(map[string]bucket.Assignment),
		records:    make(map[string]cached),
		rolledBack: make(map[string]struct{}),
	}
}

func (s *Session) Identity() identity.Identity { return s.id }

// Assignment returns the bucket of the identity for testName, computing it
// once.
func (s *Session) Assignment(testName string) bucket.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignment(testName)
}

func (s *Session) assignment(testName string) bucket.Assignment {
	a, ok := s.buckets[testName]
	if !ok {
		a = bucket.Assign(s.id.Key(), testName)
		s.buckets[testName] = a
	}
	return a
}

// Decide returns the record for p.Variant. Repeated calls against the same
// flag snapshot return the cached record. A new snapshot is re-evaluated
// and only appends to the trail when the outcome changes. A rolled back
// variant stays on baseline.
func (s *Session) Decide(p Policy, flags *feature.FlagSet) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[p.Variant]
	if ok && (prev.flags == flags || prev.record.RolledBack) {
		return prev.record
	}

	rec := Decide(p, flags, s.assignment(p.Variant).Bucket, s.killSwitch)
	if ok && prev.record.sameOutcome(rec) {
		s.records[p.Variant] = cached{record: prev.record, flags: flags}
		return prev.record
	}

	s.records[p.Variant] = cached{record: rec, flags: flags}
	s.trail = append(s.trail, rec)
	return rec
}

// Current returns the latest record for the variant, if any.
func (s *Session) Current(variant string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[variant]
	return c.record, ok
}

// MarkRolledBack pins the variant to baseline for the rest of the session.
// It reports false when the variant was already rolled back.
func (s *Session) MarkRolledBack(variant string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.rolledBack[variant]; done {
		return s.records[variant].record, false
	}
	s.rolledBack[variant] = struct{}{}

	prev := s.records[variant]
	rec := Record{
		Variant:        variant,
		Implementation: Baseline,
		Arm:            ArmNone,
		Bucket:         s.assignment(variant).Bucket,
		Reason:         ReasonRolledBack,
		Timestamp:      time.Now().UTC(),
		RolledBack:     true,
	}
	s.records[variant] = cached{record: rec, flags: prev.flags}
	s.trail = append(s.trail, rec)
	return rec, true
}

// RolledBack reports whether the variant was rolled back in this session.
func (s *Session) RolledBack(variant string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rolledBack[variant]
	return ok
}

// RolledBackVariants lists rolled back variants in sorted order.
func (s *Session) RolledBackVariants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rolledBack))
	for v := range s.rolledBack {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Trail returns a copy of every record in the order they were made.
func (s *Session) Trail() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trail)
}
