package rollout

import (
	"errors"
	"fmt"
)

// Policy describes how one variant is rolled out.
type Policy struct {
	Variant           string `yaml:"variant" json:"variant"`
	RolloutPercentage int    `yaml:"rollout_percentage" json:"rollout_percentage"`
	ABTestEnabled     bool   `yaml:"ab_test_enabled" json:"ab_test_enabled"`

	// ControlPercentage and TreatmentPercentage are the arm sizes reported
	// with decisions. Gating uses RolloutPercentage and ControlWidth.
	ControlPercentage   int `yaml:"control_percentage" json:"control_percentage"`
	TreatmentPercentage int `yaml:"treatment_percentage" json:"treatment_percentage"`

	// Flag, when set, names a bool flag that must resolve true for the
	// variant to be considered at all.
	Flag string `yaml:"flag,omitempty" json:"flag,omitempty"`
}

// Validate checks names and percentage ranges.
func (p Policy) Validate() error {
	if p.Variant == "" {
		return errors.Join(ErrInvalidPolicy, errors.New("variant name is empty"))
	}
	for name, v := range map[string]int{
		"rollout_percentage":   p.RolloutPercentage,
		"control_percentage":   p.ControlPercentage,
		"treatment_percentage": p.TreatmentPercentage,
	} {
		if v < 0 || v > 100 {
			return errors.Join(ErrInvalidPolicy, fmt.Errorf("%s: %s=%d outside [0,100]", p.Variant, name, v))
		}
	}
	if p.ControlPercentage+p.TreatmentPercentage > 100 {
		return errors.Join(ErrInvalidPolicy, fmt.Errorf("%s: arms add up to more than 100", p.Variant))
	}
	return nil
}

// ControlWidth is the number of buckets right after the treatment range that
// form the control arm: as many as the treatment arm, capped by the buckets
// left. At 60% the control arm is [60,100).
func (p Policy) ControlWidth() int {
	if !p.ABTestEnabled {
		return 0
	}
	pct := clampPercent(p.RolloutPercentage)
	return min(pct, 100-pct)
}

func clampPercent(v int) int {
	return max(0, min(100, v))
}
