package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const OutcomeOK = "ok"

// CommerceMetrics records stock and order lifecycle activity.
type CommerceMetrics struct {
	stockAdjustments *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	stockAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Stock adjustments by direction and outcome.",
	}, []string{"direction", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transition attempts by source, target and outcome.",
	}, []string{"from", "to", "outcome"})
	storeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_request_duration_seconds",
		Help:    "Latency of commerce calls against the backing store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(stockAdjustments, transitions, storeLatency)
	return &CommerceMetrics{
		stockAdjustments: stockAdjustments,
		transitions:      transitions,
		storeLatency:     storeLatency,
	}
}

func (m *CommerceMetrics) IncStockAdjustment(direction, outcome string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(direction), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) IncTransition(from, to, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) ObserveStoreLatency(operation string, d time.Duration) {
	if m == nil || m.storeLatency == nil {
		return
	}
	m.storeLatency.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
