package observability

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveQueryOutcomeIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(queryRequestsTotal.WithLabelValues("validation"))
	ObserveQueryOutcome("validation")
	after := testutil.ToFloat64(queryRequestsTotal.WithLabelValues("validation"))
	if after-before != 1 {
		t.Fatalf("counter delta = %v, want 1", after-before)
	}
}

func TestIncrementSchemaFragmentSkipped(t *testing.T) {
	before := testutil.ToFloat64(schemaFragmentsSkippedTotal)
	IncrementSchemaFragmentSkipped()
	if got := testutil.ToFloat64(schemaFragmentsSkippedTotal) - before; got != 1 {
		t.Fatalf("counter delta = %v, want 1", got)
	}
}

func TestObserveStageAndRowsDoNotPanic(t *testing.T) {
	ObserveStage("generate", 25*time.Millisecond)
	ObserveResultRows(-3)
	ObserveResultRows(12)
}

func TestRegisterDBStatsIsIdempotent(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := RegisterDBStats(db, "stats_test"); err != nil {
		t.Fatalf("RegisterDBStats() error = %v", err)
	}
	if err := RegisterDBStats(db, "stats_test"); err != nil {
		t.Fatalf("RegisterDBStats() second call error = %v", err)
	}
	if err := RegisterDBStats(nil, "stats_test"); err == nil {
		t.Fatal("expected error for nil db")
	}
}
