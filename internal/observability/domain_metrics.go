package observability

import (
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	queryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_query_requests_total",
			Help: "Total number of natural-language query requests by outcome.",
		},
		[]string{"outcome"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_stage_duration_seconds",
			Help:    "Latency of pipeline stages (context, generate, execute).",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	resultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_result_rows",
			Help:    "Number of rows returned per executed query.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)
	schemaFragmentsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_schema_fragments_skipped_total",
			Help: "Total number of schema description fragments that could not be read.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queryRequestsTotal,
		stageDurationSeconds,
		resultRows,
		schemaFragmentsSkippedTotal,
	)
}

func ObserveQueryOutcome(outcome string) {
	queryRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveStage(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveResultRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	resultRows.Observe(float64(rows))
}

func IncrementSchemaFragmentSkipped() {
	schemaFragmentsSkippedTotal.Inc()
}

// RegisterDBStats exports database/sql pool statistics. Registering the same
// database name twice is not an error.
func RegisterDBStats(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("db is required")
	}
	err := prometheus.Register(collectors.NewDBStatsCollector(db, dbName))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
