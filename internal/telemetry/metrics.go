// Package telemetry exposes the engine's Prometheus metrics. Counters are
// package-level and safe to increment whether or not they were registered.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_poll_vote_events_total",
		Help: "Vote events processed by the pipeline, labeled by terminal status",
	}, []string{"status"})

	DecryptFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_poll_vote_decrypt_failures_total",
		Help: "Encrypted-vote resolutions that degraded to an empty selection",
	})

	RewriteDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_poll_rewrite_decisions_total",
		Help: "Outbound message rewrite decisions, labeled by status",
	}, []string{"status"})

	FallbackDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leadengine_poll_fallback_decisions_total",
		Help: "Inbox fallback decisions, labeled by status",
	}, []string{"status"})
)

// Register attaches all engine metrics to the given registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(EventsTotal, DecryptFailuresTotal, RewriteDecisionsTotal, FallbackDecisionsTotal)
}
