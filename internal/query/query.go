package query

import (
	"context"
	"time"
)

// ResultSet holds a fully materialized query result. Columns follow the
// cursor's declared order; Rows[i][j] belongs to Columns[j].
type ResultSet struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Records returns one object per row keyed by column name. When a column
// name repeats, the rightmost value wins.
func (r ResultSet) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

type Executor interface {
	Execute(ctx context.Context, sql string) (ResultSet, error)
}
