//go:build integration

package sqlpool

import (
	"context"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestExecuteDecodesArrayNumericAndJSONBAgainstPostgres(t *testing.T) {
	host := os.Getenv("ASKDB_TEST_PG_HOST")
	if host == "" {
		t.Skip("ASKDB_TEST_PG_HOST is not set")
	}
	port, err := strconv.Atoi(pgEnvOr("ASKDB_TEST_PG_PORT", "5432"))
	if err != nil {
		t.Fatalf("ASKDB_TEST_PG_PORT: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := Open(ctx, Config{
		Driver:   DriverPostgres,
		Host:     host,
		Port:     port,
		Database: pgEnvOr("ASKDB_TEST_PG_DATABASE", "postgres"),
		User:     pgEnvOr("ASKDB_TEST_PG_USER", "postgres"),
		Password: pgEnvOr("ASKDB_TEST_PG_PASSWORD", "postgres"),
		SSLMode:  pgEnvOr("ASKDB_TEST_PG_SSLMODE", "disable"),
		Options:  Options{MinConns: 1, MaxConns: 2, AcquireTimeout: 5 * time.Second},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	result, err := pool.Execute(ctx, `SELECT ARRAY['a','b'] AS tags, 12.50::numeric AS price, '{"k":[1,2]}'::jsonb AS doc`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if want := []string{"tags", "price", "doc"}; !reflect.DeepEqual(result.Columns, want) {
		t.Fatalf("Columns = %v, want %v", result.Columns, want)
	}
	want := [][]any{{
		[]any{"a", "b"},
		12.5,
		map[string]any{"k": []any{float64(1), float64(2)}},
	}}
	if !reflect.DeepEqual(result.Rows, want) {
		t.Fatalf("Rows = %#v, want %#v", result.Rows, want)
	}

	if _, err := pool.Execute(ctx, "SELECT * FROM askdb_missing_table"); err == nil {
		t.Fatal("Execute() error = nil, want undefined table")
	} else if execErr, ok := err.(*QueryExecutionError); !ok || execErr.Code != "42P01" {
		t.Fatalf("Execute() error = %v, want SQLSTATE 42P01", err)
	}
	if stats := pool.Stats(); stats.InUse != 0 {
		t.Fatalf("InUse = %d after Execute()", stats.InUse)
	}
}

func pgEnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
