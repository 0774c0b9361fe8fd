// Package metrics exports generation and HTTP statistics as Prometheus
// metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dhamidi/p7/generate"
)

const namespace = "p7"

var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// Recorder collects metrics. It implements generate.Observer and is safe for
// concurrent use by many generators.
type Recorder struct {
	registry *prometheus.Registry

	validations        *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	masks              prometheus.Counter
	maskDuration       prometheus.Histogram
	maskAllowed        prometheus.Histogram
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

var _ generate.Observer = (*Recorder)(nil)

// New creates a recorder with its own registry, which also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "validations_total",
			Help:      "Candidate texts validated, by outcome.",
		}, []string{"outcome"}),
		validationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "validation_duration_seconds",
			Help:      "Time spent parsing and type checking a candidate.",
			Buckets:   latencyBuckets,
		}, []string{"outcome"}),
		masks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "masks_total",
			Help:      "Vocabulary masks computed.",
		}),
		maskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "mask_duration_seconds",
			Help:      "Time spent computing a vocabulary mask.",
			Buckets:   latencyBuckets,
		}),
		maskAllowed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "mask_allowed_ratio",
			Help:      "Fraction of the vocabulary allowed by a mask.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   latencyBuckets,
		}, []string{"route"}),
	}
	r.registry.MustRegister(
		r.validations,
		r.validationDuration,
		r.masks,
		r.maskDuration,
		r.maskAllowed,
		r.requests,
		r.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveValidation records one validated candidate.
func (r *Recorder) ObserveValidation(outcome generate.Outcome, elapsed time.Duration) {
	r.validations.WithLabelValues(string(outcome)).Inc()
	r.validationDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// ObserveMask records one mask over a vocabulary of the given size.
func (r *Recorder) ObserveMask(vocab, allowed int, elapsed time.Duration) {
	r.masks.Inc()
	r.maskDuration.Observe(elapsed.Seconds())
	if vocab > 0 {
		r.maskAllowed.Observe(float64(allowed) / float64(vocab))
	}
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
