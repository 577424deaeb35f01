package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type APIMetrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PlansBuiltTotal         prometheus.Counter
	SchedulesPersistedTotal *prometheus.CounterVec
	StatementsExecutedTotal prometheus.Counter
	IntegrityAuditsTotal    *prometheus.CounterVec
}

var (
	API = APIMetrics{
		CallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_lending_api_calls_total",
				Help: "Total number of calls made to the lending API.",
			},
			[]string{"endpoint", "outcome"},
		),
		CallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repayment_engine_lending_api_call_duration_seconds",
				Help:    "Histogram of lending API call latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "outcome"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repayment_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PlansBuiltTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_plans_built_total",
				Help: "Total number of lender repayment plans computed.",
			},
		),
		SchedulesPersistedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_schedules_persisted_total",
				Help: "Total number of loan schedule persistence attempts by status.",
			},
			[]string{"status"},
		),
		StatementsExecutedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_statements_executed_total",
				Help: "Total number of repayment statements executed against the database.",
			},
		),
		IntegrityAuditsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_integrity_audits_total",
				Help: "Total number of persisted schedule audits by outcome.",
			},
			[]string{"outcome"},
		),
	}
)

func RecordAPICall(endpoint, outcome string, duration time.Duration) {
	API.CallsTotal.WithLabelValues(endpoint, outcome).Inc()
	API.CallDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPlansBuilt(count int) {
	Business.PlansBuiltTotal.Add(float64(count))
}

func RecordSchedulePersisted(status string) {
	Business.SchedulesPersistedTotal.WithLabelValues(status).Inc()
}

func RecordStatementsExecuted(count int) {
	Business.StatementsExecutedTotal.Add(float64(count))
}

func RecordIntegrityAudit(outcome string) {
	Business.IntegrityAuditsTotal.WithLabelValues(outcome).Inc()
}
