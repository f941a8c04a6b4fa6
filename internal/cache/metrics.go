package cache

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds island lookup counters. The atomic values back Stats; the
// Prometheus counters stay nil until Register is called.
type Metrics struct {
	Hits   atomic.Uint64
	Misses atomic.Uint64

	hitsCounter   prometheus.Counter
	missesCounter prometheus.Counter

	registerOnce sync.Once
}

// Register registers Prometheus counters with the given registry. A nil
// registry is a no-op and repeated calls after the first are ignored.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.hitsCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "island_cache_hits_total",
			Help: "Total number of island cache hits",
		})

		m.missesCounter = factory.NewCounter(prometheus.CounterOpts{
			Name: "island_cache_misses_total",
			Help: "Total number of island cache misses",
		})
	})
}

func (m *Metrics) incHit() {
	m.Hits.Add(1)
	if m.hitsCounter != nil {
		m.hitsCounter.Inc()
	}
}

func (m *Metrics) incMiss() {
	m.Misses.Add(1)
	if m.missesCounter != nil {
		m.missesCounter.Inc()
	}
}

func (m *Metrics) reset() {
	m.Hits.Store(0)
	m.Misses.Store(0)
}
