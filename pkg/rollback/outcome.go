package rollback

import "time"

// OutcomeKind classifies one observation.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
	OutcomeLatency OutcomeKind = "latency"
)

// ParseOutcomeKind accepts "success", "error" or "latency".
func ParseOutcomeKind(s string) (OutcomeKind, bool) {
	switch k := OutcomeKind(s); k {
	case OutcomeSuccess, OutcomeError, OutcomeLatency:
		return k, true
	}
	return "", false
}

// Outcome is what the caller observed while running a variant. Latency may
// accompany any kind.
type Outcome struct {
	Kind    OutcomeKind
	Latency time.Duration
}

func Success() Outcome { return Outcome{Kind: OutcomeSuccess} }

func Failure() Outcome { return Outcome{Kind: OutcomeError} }

func Latency(d time.Duration) Outcome { return Outcome{Kind: OutcomeLatency, Latency: d} }

// Reason names the trigger that fired.
type Reason string

const (
	ReasonConsecutiveErrors Reason = "consecutive_errors"
	ReasonErrorRate         Reason = "error_rate"
	ReasonLatency           Reason = "latency"
)

// Trigger describes a rollback.
type Trigger struct {
	Variant           string        `json:"variant"`
	Reason            Reason        `json:"reason"`
	ConsecutiveErrors int64         `json:"consecutive_errors"`
	ErrorRate         float64       `json:"error_rate"`
	Samples           int64         `json:"samples"`
	Latency           time.Duration `json:"latency"`
	At                time.Time     `json:"at"`
}

// Snapshot is a point-in-time view of a variant's counters.
type Snapshot struct {
	Variant           string   `json:"variant"`
	Observations      int64    `json:"observations"`
	Samples           int64    `json:"samples"`
	WindowErrors      int64    `json:"window_errors"`
	ErrorRate         float64  `json:"error_rate"`
	ConsecutiveErrors int64    `json:"consecutive_errors"`
	RolledBack        bool     `json:"rolled_back"`
	Trigger           *Trigger `json:"trigger,omitempty"`
}
