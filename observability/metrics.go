package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics tracks the ledger's operation flow: throughput per
// operation, rejections per reason, liquidation outcomes and the bad-debt
// backstop counters.
type LendingMetrics struct {
	operations   *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	liquidations prometheus.Counter
	deficit      *prometheus.GaugeVec
	accruals     prometheus.Counter
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the lazily-initialised lending metrics registry.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corelend",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of completed ledger operations by type.",
			}, []string{"operation"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "corelend",
				Subsystem: "ledger",
				Name:      "rejections_total",
				Help:      "Count of rejected operations by reason.",
			}, []string{"reason"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "corelend",
				Subsystem: "ledger",
				Name:      "liquidations_total",
				Help:      "Count of completed liquidation calls.",
			}),
			deficit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "corelend",
				Subsystem: "ledger",
				Name:      "reserve_deficit",
				Help:      "Outstanding unbacked debt per reserve, in native units.",
			}, []string{"asset"}),
			accruals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "corelend",
				Subsystem: "ledger",
				Name:      "reserve_updates_total",
				Help:      "Count of reserve index and rate updates.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.rejections,
			lendingRegistry.liquidations,
			lendingRegistry.deficit,
			lendingRegistry.accruals,
		)
	})
	return lendingRegistry
}

// RecordOperation increments the throughput counter for an operation type.
func (m *LendingMetrics) RecordOperation(operation string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation).Inc()
}

// RecordRejection increments the rejection counter for a failure reason.
func (m *LendingMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordLiquidation increments the liquidation counter.
func (m *LendingMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// SetDeficit records the current unbacked debt of a reserve.
func (m *LendingMetrics) SetDeficit(asset string, value float64) {
	if m == nil {
		return
	}
	m.deficit.WithLabelValues(asset).Set(value)
}

// RecordReserveUpdate increments the index/rate update counter.
func (m *LendingMetrics) RecordReserveUpdate() {
	if m == nil {
		return
	}
	m.accruals.Inc()
}
