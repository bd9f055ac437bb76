package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import row outcomes.
const (
	OutcomeImported  = "imported"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics holds the engine's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry               *prometheus.Registry
	importRows             *prometheus.CounterVec
	balanceAdjustments     *prometheus.CounterVec
	recurringMaterialized  prometheus.Counter
	recurringFailures      prometheus.Counter
	recurringStopped       prometheus.Counter
	sweepDuration          prometheus.Histogram
	budgetAlerts           *prometheus.CounterVec
	alertEvaluationDropped prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "import_rows_total",
			Help:      "Imported rows by source and outcome.",
		}, []string{"source", "outcome"}),
		balanceAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "balance_adjustments_total",
			Help:      "Account balance adjustments by mutation path.",
		}, []string{"path"}),
		recurringMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "recurring_materialized_total",
			Help:      "Transactions created from recurring templates.",
		}),
		recurringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "recurring_failures_total",
			Help:      "Recurring templates that failed during a sweep.",
		}),
		recurringStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "recurring_stopped_total",
			Help:      "Recurring templates deactivated by a stop condition.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "finance",
			Name:      "recurring_sweep_duration_seconds",
			Help:      "Duration of recurring transaction sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		budgetAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "budget_alerts_total",
			Help:      "Budget alert notifications by result.",
		}, []string{"result"}),
		alertEvaluationDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Name:      "budget_evaluations_dropped_total",
			Help:      "Budget evaluations dropped because the queue was full.",
		}),
	}
	m.registry.MustRegister(
		m.importRows,
		m.balanceAdjustments,
		m.recurringMaterialized,
		m.recurringFailures,
		m.recurringStopped,
		m.sweepDuration,
		m.budgetAlerts,
		m.alertEvaluationDropped,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ImportRows(source, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.importRows.WithLabelValues(source, outcome).Add(float64(n))
}

func (m *Metrics) BalanceAdjusted(path string) {
	if m == nil {
		return
	}
	m.balanceAdjustments.WithLabelValues(path).Inc()
}

func (m *Metrics) RecurringMaterialized() {
	if m == nil {
		return
	}
	m.recurringMaterialized.Inc()
}

func (m *Metrics) RecurringFailed() {
	if m == nil {
		return
	}
	m.recurringFailures.Inc()
}

func (m *Metrics) RecurringStopped() {
	if m == nil {
		return
	}
	m.recurringStopped.Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) BudgetAlert(result string) {
	if m == nil {
		return
	}
	m.budgetAlerts.WithLabelValues(result).Inc()
}

func (m *Metrics) EvaluationDropped() {
	if m == nil {
		return
	}
	m.alertEvaluationDropped.Inc()
}
