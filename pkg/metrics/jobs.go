package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records scheduled job runs and the stock gauges they publish.
type JobMetrics struct {
	duration      *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	lowStock      prometheus.Gauge
	ordersByState *prometheus.GaugeVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of scheduled jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job executions by outcome.",
	}, []string{"job", "outcome"})
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "low_stock_products",
		Help: "Products at or below the low stock threshold at the last check.",
	})
	ordersByState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orders_by_status",
		Help: "Orders per status at the last check.",
	}, []string{"status"})
	reg.MustRegister(duration, runs, lowStock, ordersByState)
	return &JobMetrics{
		duration:      duration,
		runs:          runs,
		lowStock:      lowStock,
		ordersByState: ordersByState,
	}
}

func (m *JobMetrics) ObserveRun(job string, d time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = "failed"
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
	m.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

func (m *JobMetrics) SetLowStock(count int) {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

func (m *JobMetrics) SetOrdersByStatus(status string, count int) {
	if m == nil || m.ordersByState == nil {
		return
	}
	m.ordersByState.WithLabelValues(normalizeLabel(status)).Set(float64(count))
}
