package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts subscription and settlement outcomes.
type EngineMetrics struct {
	recorded    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	commission  prometheus.Counter
	activations *prometheus.CounterVec
	conflicts   prometheus.Counter
	suspensions prometheus.Counter
}

// NewEngineMetrics registers the engine counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	m := &EngineMetrics{
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transactions_recorded_total",
			Help: "Transactions written for successful payment callbacks.",
		}, []string{"type"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_duplicate_callbacks_total",
			Help: "Payment callbacks absorbed because their reference was already recorded.",
		}, []string{"type"}),
		commission: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_platform_commission_minor_total",
			Help: "Platform commission earned on order payments, in minor units.",
		}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Successful plan activations.",
		}, []string{"plan"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subscription_activation_conflicts_total",
			Help: "Activations that lost an optimistic write race.",
		}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subscription_suspensions_total",
			Help: "Vendors marked suspended after their cycle ended.",
		}),
	}
	reg.MustRegister(m.recorded, m.duplicates, m.commission, m.activations, m.conflicts, m.suspensions)
	return m
}

func (m *EngineMetrics) IncRecorded(txnType string) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(txnType)).Inc()
}

func (m *EngineMetrics) IncDuplicate(txnType string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(txnType)).Inc()
}

func (m *EngineMetrics) AddCommission(amount int64) {
	if m == nil || m.commission == nil || amount <= 0 {
		return
	}
	m.commission.Add(float64(amount))
}

func (m *EngineMetrics) IncActivation(plan string) {
	if m == nil || m.activations == nil {
		return
	}
	m.activations.WithLabelValues(normalizeLabel(plan)).Inc()
}

func (m *EngineMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *EngineMetrics) AddSuspensions(n int) {
	if m == nil || m.suspensions == nil || n <= 0 {
		return
	}
	m.suspensions.Add(float64(n))
}
