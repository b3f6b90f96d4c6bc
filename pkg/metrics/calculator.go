package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CalculatorMetrics counts calculator runs, their outcomes and the verdicts they produce.
type CalculatorMetrics struct {
	runs      *prometheus.CounterVec
	verdicts  *prometheus.CounterVec
	batchRows prometheus.Histogram
	denied    prometheus.Counter
}

// NewCalculatorMetrics registers the calculator metrics on the provided registerer.
func NewCalculatorMetrics(reg prometheus.Registerer) *CalculatorMetrics {
	if reg == nil {
		return &CalculatorMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roas_calculations_total",
		Help: "Calculator runs by mode and outcome.",
	}, []string{"mode", "outcome"})
	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roas_recommendations_total",
		Help: "Recommendations produced by tag.",
	}, []string{"tag"})
	batchRows := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roas_batch_rows",
		Help:    "Running ads analyzed per uploaded export.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
	denied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roas_access_denied_total",
		Help: "Calculator requests rejected because the trial or premium window ended.",
	})
	reg.MustRegister(runs, verdicts, batchRows, denied)
	return &CalculatorMetrics{
		runs:      runs,
		verdicts:  verdicts,
		batchRows: batchRows,
		denied:    denied,
	}
}

// ObserveRun counts one calculator run. Outcome is "ok" or "error".
func (m *CalculatorMetrics) ObserveRun(mode string, err error) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(normalizeLabel(mode), outcome).Inc()
}

// IncVerdict counts a recommendation tag.
func (m *CalculatorMetrics) IncVerdict(tag string) {
	if m == nil || m.verdicts == nil {
		return
	}
	m.verdicts.WithLabelValues(normalizeLabel(tag)).Inc()
}

// ObserveBatchSize records how many running rows a batch contained.
func (m *CalculatorMetrics) ObserveBatchSize(rows int) {
	if m == nil || m.batchRows == nil {
		return
	}
	m.batchRows.Observe(float64(rows))
}

// IncDenied counts a request refused by the entitlement gate.
func (m *CalculatorMetrics) IncDenied() {
	if m == nil || m.denied == nil {
		return
	}
	m.denied.Inc()
}
