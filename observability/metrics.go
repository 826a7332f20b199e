package observability

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"creditpool/core/events"
)

// CreditMetrics exports credit engine activity to prometheus. It satisfies
// credit.Metrics and events.Emitter.
type CreditMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	poolUnits  prometheus.Gauge
	custody    prometheus.Gauge
	events     *prometheus.CounterVec
}

// NewCreditMetrics builds the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewCreditMetrics(reg prometheus.Registerer) *CreditMetrics {
	m := &CreditMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditpool",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Credit engine operations segmented by operation and error kind.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "creditpool",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Time spent holding the engine lock per operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		poolUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "creditpool",
			Subsystem: "pool",
			Name:      "units",
			Help:      "Outstanding pool units.",
		}),
		custody: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "creditpool",
			Subsystem: "pool",
			Name:      "custody",
			Help:      "Asset balance held by the pool custody account, in base units.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "creditpool",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Ledger events segmented by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.poolUnits, m.custody, m.events)
	}
	return m
}

// ObserveOperation records one finished engine operation. Outcome is "ok" or
// the error kind.
func (m *CreditMetrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetPool publishes the pool size after a committed mutation.
func (m *CreditMetrics) SetPool(totalUnits, custody *big.Int) {
	if m == nil {
		return
	}
	m.poolUnits.Set(bigToFloat(totalUnits))
	m.custody.Set(bigToFloat(custody))
}

// Emit implements events.Emitter.
func (m *CreditMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.events.WithLabelValues(evt.EventType()).Inc()
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
