package rollout

import (
	"time"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

// Decide picks the implementation for a bucket. Gates in order: kill switch,
// policy flag, A/B split, rollout percentage. It is pure apart from the
// timestamp.
func Decide(p Policy, flags *feature.FlagSet, bucket int, killSwitch string) Record {
	rec := Record{
		Variant:        p.Variant,
		Implementation: Baseline,
		Arm:            ArmNone,
		Bucket:         bucket,
		Timestamp:      time.Now().UTC(),
	}

	if killSwitch != "" && flags.Bool(killSwitch) {
		rec.Reason = ReasonKillSwitch
		return rec
	}
	if p.Flag != "" && !flags.Bool(p.Flag) {
		rec.Reason = ReasonFlagDisabled
		return rec
	}

	pct := clampPercent(p.RolloutPercentage)
	if p.ABTestEnabled {
		switch {
		case bucket < pct:
			rec.Implementation, rec.Arm, rec.Reason = Treatment, ArmTreatment, ReasonABTreatment
			return rec
		case bucket < pct+p.ControlWidth():
			rec.Arm, rec.Reason = ArmControl, ReasonABControl
			return rec
		}
	}

	if bucket < pct {
		rec.Implementation, rec.Reason = Treatment, ReasonRolloutIn
	} else {
		rec.Reason = ReasonRolloutOut
	}
	return rec
}
