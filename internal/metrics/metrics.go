// Package metrics exposes Prometheus collectors for posting attempts and
// proxy probes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaypost_attempts_total",
		Help: "Post attempts by result and error class",
	}, []string{"result", "class"})
	Probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaypost_probes_total",
		Help: "Proxy connectivity probes by error class",
	}, []string{"class"})
	AttemptDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relaypost_attempt_duration_seconds",
		Help:    "Post attempt duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Attempts, Probes, AttemptDuration)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAttempt records one finished attempt. class is "None" on success.
func ObserveAttempt(start time.Time, ok bool, class string) {
	result := "failure"
	if ok {
		result = "success"
	}
	Attempts.WithLabelValues(result, class).Inc()
	AttemptDuration.Observe(time.Since(start).Seconds())
}

// IncProbe counts one probe outcome.
func IncProbe(class string) { Probes.WithLabelValues(class).Inc() }
