package query

import "testing"

func TestRecordsZipsColumnsAndRows(t *testing.T) {
	rs := ResultSet{
		Columns: []string{"id", "tags"},
		Rows: [][]any{
			{int64(1), []any{"a", "b"}},
			{int64(2), nil},
		},
	}
	records := rs.Records()
	if len(records) != 2 {
		t.Fatalf("len(Records()) = %d", len(records))
	}
	if records[0]["id"] != int64(1) {
		t.Fatalf("records[0][id] = %#v", records[0]["id"])
	}
	if tags, ok := records[0]["tags"].([]any); !ok || len(tags) != 2 {
		t.Fatalf("records[0][tags] = %#v", records[0]["tags"])
	}
	if value, ok := records[1]["tags"]; !ok || value != nil {
		t.Fatalf("records[1][tags] = %#v, %v", value, ok)
	}
}

func TestRecordsEmptyResultIsNonNil(t *testing.T) {
	records := ResultSet{}.Records()
	if records == nil || len(records) != 0 {
		t.Fatalf("Records() = %#v", records)
	}
}

func TestRecordsDuplicateColumnKeepsLastValue(t *testing.T) {
	rs := ResultSet{Columns: []string{"id", "id"}, Rows: [][]any{{1, 2}}}
	if got := rs.Records()[0]["id"]; got != 2 {
		t.Fatalf("id = %#v", got)
	}
}
