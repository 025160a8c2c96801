// Package metrics holds the Prometheus collectors for self-test runs and
// signature verification. They are registered with the default registry on
// first use.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	selftestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xform",
			Subsystem: "selftest",
			Name:      "runs_total",
			Help:      "Count of self-test gate runs classified by result",
		},
		[]string{"result"},
	)

	selftestVectors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xform",
			Subsystem: "selftest",
			Name:      "vectors_total",
			Help:      "Count of known-answer vectors checked classified by result",
		},
		[]string{"result"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xform",
			Subsystem: "sign",
			Name:      "verifications_total",
			Help:      "Count of signature verifications classified by algorithm and result",
		},
		[]string{"algorithm", "result"},
	)

	verifySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xform",
			Subsystem: "sign",
			Name:      "verify_seconds",
			Help:      "Time spent verifying signatures",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.05},
		},
	)
)

func ensureRegistered() {
	registerOnce.Do(func() {
		prometheus.MustRegister(selftestRuns, selftestVectors, verifications, verifySeconds)
	})
}

func SelfTestRuns() *prometheus.CounterVec {
	ensureRegistered()
	return selftestRuns
}

func SelfTestVectors() *prometheus.CounterVec {
	ensureRegistered()
	return selftestVectors
}

func VerificationsCounter() *prometheus.CounterVec {
	ensureRegistered()
	return verifications
}

func VerifyObserver() prometheus.Observer {
	ensureRegistered()
	return verifySeconds
}

// Result maps a boolean outcome to a label value.
func Result(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
