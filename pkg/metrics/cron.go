package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks each cron job's runs, run time and last success.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of a single cron job execution.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the most recent successful run.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// ObserveJob records one execution that finished at finishedAt after running for took.
func (m *CronJobMetrics) ObserveJob(job string, took time.Duration, finishedAt time.Time, err error) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	m.runs.WithLabelValues(job, "success").Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(finishedAt.Unix()))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
