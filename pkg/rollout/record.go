package rollout

import "time"

// Implementation is the code path a decision selects.
type Implementation string

const (
	Baseline  Implementation = "baseline"
	Treatment Implementation = "treatment"
)

// Arm is the experiment arm of a decision.
type Arm string

const (
	ArmNone      Arm = "none"
	ArmControl   Arm = "control"
	ArmTreatment Arm = "treatment"
)

// Reason explains a decision.
type Reason string

const (
	ReasonKillSwitch   Reason = "kill_switch"
	ReasonFlagDisabled Reason = "flag_disabled"
	ReasonABTreatment  Reason = "ab_treatment"
	ReasonABControl    Reason = "ab_control"
	ReasonRolloutIn    Reason = "rollout_in"
	ReasonRolloutOut   Reason = "rollout_out"
	ReasonRolledBack   Reason = "rolled_back"
)

// Record is one decision for one variant.
type Record struct {
	Variant        string         `json:"variant"`
	Implementation Implementation `json:"implementation"`
	Arm            Arm            `json:"arm"`
	Bucket         int            `json:"bucket"`
	Reason         Reason         `json:"reason"`
	Timestamp      time.Time      `json:"timestamp"`
	RolledBack     bool           `json:"rolled_back"`
}

// IsTreatment reports whether the treatment implementation runs.
func (r Record) IsTreatment() bool { return r.Implementation == Treatment }

// InExperiment reports whether the identity is enrolled in an A/B arm.
func (r Record) InExperiment() bool { return r.Arm != ArmNone && r.Arm != "" }

func (r Record) sameOutcome(o Record) bool {
	return r.Implementation == o.Implementation && r.Arm == o.Arm && r.Reason == o.Reason && r.RolledBack == o.RolledBack
}
