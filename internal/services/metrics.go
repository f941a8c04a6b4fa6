package services

import (
	"strings"

	"github.com/mroshb/islands/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterMetrics registers the workflow outcome counter and the cache
// counters with registry. Only the first call has an effect.
func (s *IslandService) RegisterMetrics(registry prometheus.Registerer) {
	if registry == nil {
		return
	}

	s.metricsOnce.Do(func() {
		s.cache.Metrics().Register(registry)

		factory := promauto.With(registry)
		s.workflows.Store(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "island_workflows_total",
			Help: "Island workflows by outcome",
		}, []string{"workflow", "outcome"}))
	})
}

func (s *IslandService) observe(workflow string, err error) {
	counter := s.workflows.Load()
	if counter == nil {
		return
	}
	counter.WithLabelValues(workflow, outcomeOf(err)).Inc()
}

// outcomeOf maps an error to a low-cardinality label value.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.CodeOf(err); code != "" {
		return strings.ToLower(code)
	}
	return "error"
}
