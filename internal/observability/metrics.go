package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics registry and standard meters.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	ChainLength       *prometheus.GaugeVec
	StagedOpen        prometheus.Gauge
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics creates a custom Prometheus registry with standard stampd metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stampd_operation_duration_seconds",
		Help:    "Duration of operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stampd_operation_total",
		Help: "Total number of operations.",
	}, []string{"operation", "status"})

	chainLength := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stampd_chain_length",
		Help: "Number of committed transactions per identity.",
	}, []string{"identity"})

	stagedOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stampd_staged_open",
		Help: "Number of open staged transactions.",
	})

	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stampd_errors_total",
		Help: "Total number of errors.",
	}, []string{"operation", "type"})

	reg.MustRegister(opDuration, opTotal, chainLength, stagedOpen, errorsTotal)

	return &Metrics{
		Registry:          reg,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		ChainLength:       chainLength,
		StagedOpen:        stagedOpen,
		ErrorsTotal:       errorsTotal,
	}
}
