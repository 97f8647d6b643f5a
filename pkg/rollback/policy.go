package rollback

import (
	"errors"
	"fmt"
	"time"
)

// Policy sets the triggers for one variant. A zero threshold disables its
// trigger.
type Policy struct {
	ErrorRateThreshold           float64       `yaml:"error_rate_threshold" json:"error_rate_threshold"`
	PerformanceDegradationFactor float64       `yaml:"performance_degradation_factor" json:"performance_degradation_factor"`
	ConsecutiveErrorLimit        int           `yaml:"consecutive_error_limit" json:"consecutive_error_limit"`
	Window                       int           `yaml:"window" json:"window"`
	MinSamples                   int           `yaml:"min_samples" json:"min_samples"`
	BaselineLatency              time.Duration `yaml:"baseline_latency" json:"baseline_latency"`
}

// DefaultPolicy rolls back after 3 errors in a row, a 10% error rate over
// the last 50 outcomes (once 10 are in), or latency at twice the baseline.
func DefaultPolicy() Policy {
	return Policy{
		ErrorRateThreshold:           0.1,
		PerformanceDegradationFactor: 2,
		ConsecutiveErrorLimit:        3,
		Window:                       50,
		MinSamples:                   10,
	}
}

// Validate rejects negative values and rates above 1.
func (p Policy) Validate() error {
	switch {
	case p.ErrorRateThreshold < 0 || p.ErrorRateThreshold > 1:
		return errors.Join(ErrInvalidPolicy, fmt.Errorf("error_rate_threshold %v outside [0,1]", p.ErrorRateThreshold))
	case p.PerformanceDegradationFactor < 0:
		return errors.Join(ErrInvalidPolicy, fmt.Errorf("performance_degradation_factor %v is negative", p.PerformanceDegradationFactor))
	case p.ConsecutiveErrorLimit < 0, p.Window < 0, p.MinSamples < 0, p.BaselineLatency < 0:
		return errors.Join(ErrInvalidPolicy, errors.New("limits must not be negative"))
	case p.Window > 0 && p.MinSamples > p.Window:
		return errors.Join(ErrInvalidPolicy, fmt.Errorf("min_samples %d larger than window %d", p.MinSamples, p.Window))
	}
	return nil
}

func (p Policy) normalized() Policy {
	if p.Window <= 0 {
		p.Window = DefaultPolicy().Window
	}
	if p.MinSamples <= 0 {
		p.MinSamples = 1
	}
	p.MinSamples = min(p.MinSamples, p.Window)
	return p
}

// latencyLimit is zero when the latency trigger is off.
func (p Policy) latencyLimit() time.Duration {
	if p.BaselineLatency <= 0 || p.PerformanceDegradationFactor <= 0 {
		return 0
	}
	return time.Duration(float64(p.BaselineLatency) * p.PerformanceDegradationFactor)
}
