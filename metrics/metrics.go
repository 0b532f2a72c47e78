// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MatchesTotal counts created game instances by mode.
	MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codesiege",
		Name:      "matches_total",
		Help:      "Number of game instances created, by mode.",
	}, []string{"mode"})

	// ActiveSessions tracks the number of live game instances.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesiege",
		Name:      "active_sessions",
		Help:      "Number of game instances currently running.",
	})

	// QueueDepth tracks players waiting in the versus queue.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "codesiege",
		Name:      "queue_depth",
		Help:      "Number of players waiting for a versus match.",
	})
)

func init() {
	prometheus.MustRegister(MatchesTotal, ActiveSessions, QueueDepth)
}

// Register mounts the Prometheus scrape endpoint on the router.
func Register(r *mux.Router) {
	r.Handle("/metrics", promhttp.Handler())
}
