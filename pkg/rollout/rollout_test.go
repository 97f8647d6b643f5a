package rollout_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/bucket"
	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/rollout"
)

var catalog = feature.MustCatalog([]feature.Definition{
	{Name: "killSwitch", Kind: feature.KindBool, Default: "false"},
	{Name: "newCheckout", Kind: feature.KindBool, Default: "true"},
})

func flags(kv ...string) *feature.FlagSet {
	values := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		values[kv[i]] = kv[i+1]
	}
	return feature.NewResolver(catalog).Resolve([]feature.ConfigSource{{Kind: feature.SourceQuery, Values: values}})
}

func checkout(pct int, ab bool) rollout.Policy {
	return rollout.Policy{Variant: "checkout-v2", RolloutPercentage: pct, ABTestEnabled: ab}
}

func TestDecideScenario(t *testing.T) {
	t.Parallel()
	fs := flags()
	policy := checkout(10, true)

	tests := []struct {
		identity string
		bucket   int
		impl     rollout.Implementation
		arm      rollout.Arm
	}{
		{"user-105", 7, rollout.Treatment, rollout.ArmTreatment},
		{"user-42", 15, rollout.Baseline, rollout.ArmControl},
		{"user-175", 42, rollout.Baseline, rollout.ArmNone},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			t.Parallel()
			b := bucket.Bucket(tt.identity, "checkout-v2")
			require.Equal(t, tt.bucket, b)

			rec := rollout.Decide(policy, fs, b, "killSwitch")
			assert.Equal(t, tt.impl, rec.Implementation)
			assert.Equal(t, tt.arm, rec.Arm)
			assert.Equal(t, "checkout-v2", rec.Variant)
			assert.Equal(t, tt.bucket, rec.Bucket)
			assert.False(t, rec.RolledBack)
		})
	}
}

func TestDecideGates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy rollout.Policy
		flags  *feature.FlagSet
		bucket int
		impl   rollout.Implementation
		arm    rollout.Arm
		reason rollout.Reason
	}{
		{"kill switch wins", checkout(100, false), flags("killSwitch", "true"), 0, rollout.Baseline, rollout.ArmNone, rollout.ReasonKillSwitch},
		{"policy flag off", rollout.Policy{Variant: "v", RolloutPercentage: 100, Flag: "newCheckout"}, flags("newCheckout", "0"), 0, rollout.Baseline, rollout.ArmNone, rollout.ReasonFlagDisabled},
		{"policy flag on", rollout.Policy{Variant: "v", RolloutPercentage: 100, Flag: "newCheckout"}, flags(), 99, rollout.Treatment, rollout.ArmNone, rollout.ReasonRolloutIn},
		{"rollout in", checkout(25, false), flags(), 24, rollout.Treatment, rollout.ArmNone, rollout.ReasonRolloutIn},
		{"rollout out", checkout(25, false), flags(), 25, rollout.Baseline, rollout.ArmNone, rollout.ReasonRolloutOut},
		{"zero percent", checkout(0, true), flags(), 0, rollout.Baseline, rollout.ArmNone, rollout.ReasonRolloutOut},
		{"ab control lower edge", checkout(10, true), flags(), 10, rollout.Baseline, rollout.ArmControl, rollout.ReasonABControl},
		{"ab control upper edge", checkout(10, true), flags(), 19, rollout.Baseline, rollout.ArmControl, rollout.ReasonABControl},
		{"ab not enrolled", checkout(10, true), flags(), 20, rollout.Baseline, rollout.ArmNone, rollout.ReasonRolloutOut},
		{"ab above half", checkout(60, true), flags(), 99, rollout.Baseline, rollout.ArmControl, rollout.ReasonABControl},
		{"ab above half treatment", checkout(60, true), flags(), 59, rollout.Treatment, rollout.ArmTreatment, rollout.ReasonABTreatment},
		{"full rollout ab", checkout(100, true), flags(), 99, rollout.Treatment, rollout.ArmTreatment, rollout.ReasonABTreatment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := rollout.Decide(tt.policy, tt.flags, tt.bucket, "killSwitch")
			assert.Equal(t, tt.impl, rec.Implementation)
			assert.Equal(t, tt.arm, rec.Arm)
			assert.Equal(t, tt.reason, rec.Reason)
		})
	}
}

func TestPolicy(t *testing.T) {
	t.Parallel()
	require.NoError(t, checkout(10, true).Validate())
	require.ErrorIs(t, rollout.Policy{}.Validate(), rollout.ErrInvalidPolicy)
	require.ErrorIs(t, checkout(101, false).Validate(), rollout.ErrInvalidPolicy)
	require.ErrorIs(t, checkout(-1, false).Validate(), rollout.ErrInvalidPolicy)
	require.ErrorIs(t, rollout.Policy{Variant: "v", ControlPercentage: 60, TreatmentPercentage: 50}.Validate(), rollout.ErrInvalidPolicy)

	assert.Equal(t, 0, checkout(10, false).ControlWidth())
	assert.Equal(t, 10, checkout(10, true).ControlWidth())
	assert.Equal(t, 50, checkout(50, true).ControlWidth())
	assert.Equal(t, 30, checkout(70, true).ControlWidth())
}

func TestStatisticalRollout(t *testing.T) {
	t.Parallel()
	const n = 100_000
	fs := flags()
	policy := checkout(25, false)

	treated := 0
	for i := range n {
		id := fmt.Sprintf("identity-%d", i)
		if rollout.Decide(policy, fs, bucket.Bucket(id, policy.Variant), "").IsTreatment() {
			treated++
		}
	}
	assert.InDelta(t, 0.25, float64(treated)/n, 0.01)
}

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("cached per snapshot", func(t *testing.T) {
		t.Parallel()
		s := rollout.NewSession(identity.Identity{UserID: "user-42"}, "killSwitch")
		fs := flags()
		first := s.Decide(checkout(10, true), fs)
		second := s.Decide(checkout(10, true), fs)
		assert.Equal(t, first, second)
		assert.Len(t, s.Trail(), 1)
		assert.Equal(t, 15, s.Assignment("checkout-v2").Bucket)
	})

	t.Run("new snapshot with same outcome keeps record", func(t *testing.T) {
		t.Parallel()
		s := rollout.NewSession(identity.Identity{UserID: "user-42"}, "killSwitch")
		first := s.Decide(checkout(10, true), flags())
		second := s.Decide(checkout(10, true), flags())
		assert.Equal(t, first, second)
		assert.Len(t, s.Trail(), 1)
	})

	t.Run("kill switch appends", func(t *testing.T) {
		t.Parallel()
		s := rollout.NewSession(identity.Identity{UserID: "user-105"}, "killSwitch")
		on := s.Decide(checkout(10, true), flags())
		require.True(t, on.IsTreatment())

		off := s.Decide(checkout(10, true), flags("killSwitch", "1"))
		assert.False(t, off.IsTreatment())
		assert.Equal(t, rollout.ReasonKillSwitch, off.Reason)
		assert.Len(t, s.Trail(), 2)
	})

	t.Run("rollback is terminal", func(t *testing.T) {
		t.Parallel()
		s := rollout.NewSession(identity.Identity{UserID: "user-105"}, "killSwitch")
		fs := flags()
		require.True(t, s.Decide(checkout(10, true), fs).IsTreatment())

		rec, changed := s.MarkRolledBack("checkout-v2")
		require.True(t, changed)
		assert.True(t, rec.RolledBack)
		assert.Equal(t, rollout.Baseline, rec.Implementation)
		assert.Equal(t, rollout.ReasonRolledBack, rec.Reason)

		_, changed = s.MarkRolledBack("checkout-v2")
		assert.False(t, changed)

		again := s.Decide(checkout(10, true), flags())
		assert.Equal(t, rec, again)
		assert.True(t, s.RolledBack("checkout-v2"))
		assert.Equal(t, []string{"checkout-v2"}, s.RolledBackVariants())

		trail := s.Trail()
		require.Len(t, trail, 2)
		assert.False(t, trail[0].RolledBack)
		assert.True(t, trail[1].RolledBack)
	})

	t.Run("concurrent first decision appends once", func(t *testing.T) {
		t.Parallel()
		s := rollout.NewSession(identity.Identity{SessionID: "s-1"}, "")
		fs := flags()
		var wg sync.WaitGroup
		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Decide(checkout(50, true), fs)
			}()
		}
		wg.Wait()
		assert.Len(t, s.Trail(), 1)
		cur, ok := s.Current("checkout-v2")
		require.True(t, ok)
		assert.Equal(t, s.Trail()[0], cur)
	})
}

func BenchmarkSessionDecide(b *testing.B) {
	s := rollout.NewSession(identity.Identity{UserID: "user-42"}, "killSwitch")
	fs := flags()
	p := checkout(10, true)
	for b.Loop() {
		s.Decide(p, fs)
	}
}
