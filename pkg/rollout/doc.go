// Package rollout decides which implementation of a variant an identity
// receives.
//
// Decide is the pure gate. Given a Policy, the resolved flags and the
// identity's bucket it checks, in order:
//
//  1. the kill switch flag, forcing baseline;
//  2. the policy's own flag, baseline when it resolves false;
//  3. the A/B split when enabled: buckets below the rollout percentage get
//     the treatment arm, the next ControlWidth buckets get the control arm;
//  4. the plain rollout percentage.
//
// Session wraps Decide for one identity. Buckets are computed once, each
// variant keeps one current record, and every change lands in an
// append-only trail. MarkRolledBack is terminal: the variant stays on
// baseline until the session is discarded.
//
//	s := rollout.NewSession(identity.Identity{UserID: "user-42"}, "killSwitch")
//	rec := s.Decide(rollout.Policy{Variant: "checkout-v2", RolloutPercentage: 10, ABTestEnabled: true}, flags)
//	if rec.IsTreatment() {
//	    // new checkout
//	}
package rollout
