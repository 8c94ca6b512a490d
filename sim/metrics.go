package sim

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the store and graph.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Evaluations      prometheus.Counter
	OperatorSeconds  *prometheus.HistogramVec
	HistoryDepth     *prometheus.GaugeVec
	TransferFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldsim",
			Name:      "graph_evaluations_total",
			Help:      "Completed operator graph evaluation cycles.",
		}),
		OperatorSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldsim",
			Name:      "operator_compute_seconds",
			Help:      "Wall time spent in Operator.ComputeBuffer.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"operator"}),
		HistoryDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fieldsim",
			Name:      "buffer_history_depth",
			Help:      "Occupied history slots per buffer after the last advance.",
		}, []string{"buffer"}),
		TransferFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldsim",
			Name:      "host_transfer_failures_total",
			Help:      "Failed host-copy materializations per buffer.",
		}, []string{"buffer"}),
	}
	for _, c := range []prometheus.Collector{m.Evaluations, m.OperatorSeconds, m.HistoryDepth, m.TransferFailures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering field metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) countEvaluation() {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
}

func (m *Metrics) observeOperator(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.OperatorSeconds.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) observeHistoryDepth(buffer string, depth int) {
	if m == nil {
		return
	}
	m.HistoryDepth.WithLabelValues(buffer).Set(float64(depth))
}

func (m *Metrics) countTransferFailure(buffer string) {
	if m == nil {
		return
	}
	m.TransferFailures.WithLabelValues(buffer).Inc()
}
