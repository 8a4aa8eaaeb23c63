package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from the per-concern init functions so the
// default registry is only touched once the app opts in.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every queued collector. Safe to call more than once;
// only the first call registers.
func MustRegister() {
	registerOnce.Do(func() {
		if len(pending) > 0 {
			prometheus.MustRegister(pending...)
		}
	})
}
