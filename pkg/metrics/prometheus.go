package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink counts events by type and variant.
type PrometheusSink struct {
	events *prometheus.CounterVec
}

// NewPrometheusSink registers flagd_events_total on reg. Registering twice on
// the same registry reuses the existing collector.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagd",
		Name:      "events_total",
		Help:      "Rollout engine events by type and variant.",
	}, []string{"type", "variant"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				events = are.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return &PrometheusSink{events: events}
}

func (s *PrometheusSink) Emit(_ context.Context, e Event) error {
	s.events.WithLabelValues(string(e.Type), e.Variant).Inc()
	return nil
}

// Counter exposes the underlying vector, mainly for tests.
func (s *PrometheusSink) Counter() *prometheus.CounterVec { return s.events }
