package aggregates

import (
	"time"

	"github.com/mentiby/tracker-backend/internal/observability"
)

// Hooks receives one ObserveOperation per executeWrite attempt, plus a
// conflict or retry signal when the attempt ended that way.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// metricHooks forwards to the OTel instruments; Metrics methods are nil-safe.
type metricHooks struct{ m *observability.Metrics }

func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricHooks{m: metrics}
}

func (h metricHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}

func (h metricHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }
func (h metricHooks) IncRetry(name string)    { h.m.IncAggregateRetry(name) }
