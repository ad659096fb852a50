package observability

import "github.com/byteness/toolgateway/chaos"

// ChaosSink adapts Metrics to chaos.Counters so the injector can report
// activity without importing the metrics registry directly.
type ChaosSink struct {
	metrics *Metrics
}

// NewChaosSink wraps metrics as a chaos.Counters implementation.
func NewChaosSink(metrics *Metrics) *ChaosSink {
	return &ChaosSink{metrics: metrics}
}

func (s *ChaosSink) IncInjection(tool string, mode chaos.Mode) {
	s.metrics.RecordChaosInjection(tool, string(mode))
}

func (s *ChaosSink) IncClearing(tool string) {
	s.metrics.RecordChaosClearing(tool)
}

var _ chaos.Counters = (*ChaosSink)(nil)
