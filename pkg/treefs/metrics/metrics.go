// Package metrics provides Prometheus instrumentation for the Tree Engine
// and Authorization Engine, grounded on the teacher's metric structs
// (pkg/metadata/lock/metrics.go, pkg/metadata/acl/metrics.go): labeled
// counters/histograms behind a struct whose methods are nil-receiver
// no-ops, so instrumentation can be wired in everywhere without a nil
// check at every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as the "op" label across the Tree Engine counters.
const (
	OpResolve = "resolve"
	OpRead    = "read"
	OpAdd     = "add"
	OpMove    = "move"
	OpRemove  = "remove"
	OpShare   = "share"
	OpWrite   = "write"
)

// Result values used as the "result" label.
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultDenied = "denied"
)

// Metrics holds every metric emitted by the Tree Engine and Authorization
// Engine. A nil *Metrics is a valid, inert receiver.
type Metrics struct {
	opTotal    *prometheus.CounterVec
	opDuration *prometheus.HistogramVec

	authzCheckTotal    *prometheus.CounterVec
	authzCheckDuration prometheus.Histogram

	blobBytesWritten prometheus.Counter
	blobBytesRead    prometheus.Counter
}

// New creates and registers the Tree Engine's metrics. If registerer is
// nil, prometheus.DefaultRegisterer is used.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		opTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "treefs",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total Tree Engine operations by kind and result",
			},
			[]string{"op", "result"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "treefs",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Time to complete a Tree Engine operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		authzCheckTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "treefs",
				Subsystem: "authz",
				Name:      "checks_total",
				Help:      "Total authorization checks by result",
			},
			[]string{"result"},
		),
		authzCheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "treefs",
				Subsystem: "authz",
				Name:      "check_duration_seconds",
				Help:      "Time to evaluate a share-based authorization check",
				Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		blobBytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "treefs",
				Subsystem: "blob",
				Name:      "bytes_written_total",
				Help:      "Total content bytes written through the blob driver",
			},
		),
		blobBytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "treefs",
				Subsystem: "blob",
				Name:      "bytes_read_total",
				Help:      "Total content bytes read through the blob driver",
			},
		),
	}

	registerer.MustRegister(
		m.opTotal,
		m.opDuration,
		m.authzCheckTotal,
		m.authzCheckDuration,
		m.blobBytesWritten,
		m.blobBytesRead,
	)

	return m
}

// ObserveOp records one Tree Engine operation's outcome and duration.
func (m *Metrics) ObserveOp(op string, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.opTotal.WithLabelValues(op, result).Inc()
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveAuthzCheck records one Authorization Engine check.
func (m *Metrics) ObserveAuthzCheck(allowed bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if !allowed {
		result = ResultDenied
	}
	m.authzCheckTotal.WithLabelValues(result).Inc()
	m.authzCheckDuration.Observe(duration.Seconds())
}

// AddBlobBytesWritten accumulates bytes written through the blob driver.
func (m *Metrics) AddBlobBytesWritten(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.blobBytesWritten.Add(float64(n))
}

// AddBlobBytesRead accumulates bytes read through the blob driver.
func (m *Metrics) AddBlobBytesRead(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.blobBytesRead.Add(float64(n))
}
