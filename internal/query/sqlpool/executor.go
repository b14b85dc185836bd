package sqlpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/marcboeker/go-duckdb/v2"

	"github.com/askdb/askdb/internal/query"
)

// QueryExecutionError wraps a failure reported by the database for one
// statement. Code carries the Postgres SQLSTATE when known.
type QueryExecutionError struct {
	SQL  string
	Code string
	Err  error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// Message is the database's own text without the wrapping prefix.
func (e *QueryExecutionError) Message() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Message
	}
	return e.Err.Error()
}

func newExecutionError(sqlText string, err error) *QueryExecutionError {
	execErr := &QueryExecutionError{SQL: sqlText, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		execErr.Code = pgErr.Code
	}
	return execErr
}

// Execute runs one statement on a pooled connection and materializes every
// row. The connection goes back to the pool on every return path.
func (p *Pool) Execute(ctx context.Context, sqlText string) (query.ResultSet, error) {
	start := time.Now()

	conn, err := p.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrPoolExhausted) {
			return query.ResultSet{}, err
		}
		return query.ResultSet{}, newExecutionError(sqlText, err)
	}
	defer func() { _ = conn.Close() }()

	if p.statementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.statementTimeout)
		defer cancel()
	}

	var result query.ResultSet
	if p.native {
		result, err = queryNative(ctx, conn, sqlText)
	} else {
		result, err = queryGeneric(ctx, conn, sqlText)
	}
	if err != nil {
		return query.ResultSet{}, newExecutionError(sqlText, err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// queryNative reads rows through the pgx connection underneath database/sql
// so arrays, json and numeric columns decode into Go values instead of text.
func queryNative(ctx context.Context, conn *sql.Conn, sqlText string) (query.ResultSet, error) {
	result := query.ResultSet{Columns: []string{}, Rows: [][]any{}}
	err := conn.Raw(func(driverConn any) error {
		stdConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		rows, err := stdConn.Conn().Query(ctx, sqlText)
		if err != nil {
			return err
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		if len(fields) == 0 {
			rows.Close()
			return rows.Err()
		}
		for _, field := range fields {
			result.Columns = append(result.Columns, field.Name)
		}

		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return fmt.Errorf("decode row: %w", err)
			}
			result.Rows = append(result.Rows, normalizeValues(values))
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return query.ResultSet{}, err
	}
	return result, nil
}

func queryGeneric(ctx context.Context, conn *sql.Conn, sqlText string) (query.ResultSet, error) {
	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.ResultSet{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.ResultSet{}, fmt.Errorf("query columns: %w", err)
	}

	result := query.ResultSet{Columns: []string{}, Rows: [][]any{}}
	if len(columns) == 0 {
		return result, nil
	}
	result.Columns = columns

	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		normalized[i] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case [16]byte:
		return formatUUID(typed)
	case duckdb.Decimal:
		return typed.Float64()
	case pgtype.Numeric:
		return numericValue(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeValue(item)
		}
		return out
	default:
		return typed
	}
}

// numericValue keeps NaN and infinities as their Postgres text since they
// have no JSON number form.
func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		text, err := n.Value()
		if err != nil {
			return nil
		}
		return text
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

func formatUUID(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
