package resource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the accounting core. All Manager
// instrumentation goes through a *Metrics, and a nil *Metrics disables it.
type Metrics struct {
	rejections     *prometheus.CounterVec
	blockExhausted *prometheus.CounterVec

	virtualLimit *prometheus.GaugeVec
	blockAverage *prometheus.GaugeVec
}

// NewMetrics creates collectors registered against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gstio_resource_rejections_total",
				Help: "Total transactions rejected by per-account resource checks",
			},
			[]string{"resource"},
		),
		blockExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gstio_resource_block_exhausted_total",
				Help: "Total transactions rejected because the block ran out of aggregate capacity",
			},
			[]string{"resource"},
		),
		virtualLimit: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gstio_resource_virtual_limit",
				Help: "Current elastic virtual block limit per resource",
			},
			[]string{"resource"},
		),
		blockAverage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gstio_resource_block_usage_average",
				Help: "Trailing average block usage per resource",
			},
			[]string{"resource"},
		),
	}
}

// RecordRejection counts a per-account resource-exceeded rejection.
func (m *Metrics) RecordRejection(res ResourceKind) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(res)).Inc()
}

// RecordBlockExhausted counts a block-aggregate capacity rejection.
func (m *Metrics) RecordBlockExhausted(res ResourceKind) {
	if m == nil {
		return
	}
	m.blockExhausted.WithLabelValues(string(res)).Inc()
}

// ObserveBlock publishes the post-settlement block state gauges.
func (m *Metrics) ObserveBlock(state *StateObject) {
	if m == nil {
		return
	}
	m.virtualLimit.WithLabelValues(string(ResourceCPU)).Set(float64(state.VirtualCPULimit))
	m.virtualLimit.WithLabelValues(string(ResourceNet)).Set(float64(state.VirtualNetLimit))
	m.blockAverage.WithLabelValues(string(ResourceCPU)).Set(float64(state.AverageBlockCPUUsage.Average()))
	m.blockAverage.WithLabelValues(string(ResourceNet)).Set(float64(state.AverageBlockNetUsage.Average()))
}
