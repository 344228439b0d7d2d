// Package metrics provides Prometheus metrics for dyndnsd.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes all metric names.
const Namespace = "dyndns"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeOffline = "offline"
)

var (
	updateAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "update_attempts_total",
		Help:      "DNS update attempts by outcome.",
	}, []string{"outcome"})

	updateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "update_duration_seconds",
		Help:      "Duration of DNS update attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	probes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "probes_total",
		Help:      "Directory connection probes by outcome.",
	}, []string{"outcome"})

	onlineTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "online_transitions_total",
		Help:      "Times the directory backend transitioned from offline to online.",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_update_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful DNS update.",
	})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information, value fixed at 1.",
	}, []string{"version", "go_version"})
)

// RecordAttempt records one update attempt and its duration.
func RecordAttempt(outcome string, d time.Duration) {
	updateAttempts.WithLabelValues(outcome).Inc()
	updateDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		lastSuccess.SetToCurrentTime()
	}
}

// RecordProbe records one directory connection probe outcome.
func RecordProbe(outcome string) {
	probes.WithLabelValues(outcome).Inc()
}

// RecordOnlineTransition counts an offline-to-online transition.
func RecordOnlineTransition() {
	onlineTransitions.Inc()
}

// SetBuildInfo sets the build info gauge.
func SetBuildInfo(version, goVersion string) {
	buildInfo.WithLabelValues(version, goVersion).Set(1)
}
