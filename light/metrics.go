package light

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"

	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "light"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of accepted updates.
	UpdatesAccepted metrics.Counter
	// Number of rejected updates, labelled by reason.
	UpdatesRejected metrics.Counter
	// Version of the trusted state.
	TrustedVersion metrics.Gauge
	// Epoch of the trusted state.
	TrustedEpoch metrics.Gauge
	// Number of accepted validator set changes.
	EpochChanges metrics.Counter
	// Time spent verifying aggregate signatures.
	SignatureVerifySeconds metrics.Histogram
	// Number of proof queries, labelled by kind and result.
	ProofQueries metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		UpdatesAccepted: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "updates_accepted",
			Help:      "Number of accepted updates.",
		}, labels).With(labelsAndValues...),
		UpdatesRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "updates_rejected",
			Help:      "Number of rejected updates.",
		}, append(labels, "reason")).With(labelsAndValues...),
		TrustedVersion: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "trusted_version",
			Help:      "Version of the trusted state.",
		}, labels).With(labelsAndValues...),
		TrustedEpoch: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "trusted_epoch",
			Help:      "Epoch of the trusted state.",
		}, labels).With(labelsAndValues...),
		EpochChanges: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "epoch_changes",
			Help:      "Number of accepted validator set changes.",
		}, labels).With(labelsAndValues...),
		SignatureVerifySeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "signature_verify_seconds",
			Help:      "Time spent verifying aggregate signatures.",
			Buckets:   stdprometheus.ExponentialBucketsRange(0.0005, 1, 10),
		}, labels).With(labelsAndValues...),
		ProofQueries: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "proof_queries",
			Help:      "Number of proof queries.",
		}, append(labels, "kind", "result")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		UpdatesAccepted:        discard.NewCounter(),
		UpdatesRejected:        discard.NewCounter(),
		TrustedVersion:         discard.NewGauge(),
		TrustedEpoch:           discard.NewGauge(),
		EpochChanges:           discard.NewCounter(),
		SignatureVerifySeconds: discard.NewHistogram(),
		ProofQueries:           discard.NewCounter(),
	}
}
