package nl2sql

import "testing"

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: " \n\t ", want: ""},
		{name: "sql fence", raw: "```sql\nSELECT * FROM employees\n```", want: "SELECT * FROM employees"},
		{name: "sql fence with prose", raw: "Here you go:\n```sql\n  SELECT id FROM t;  \n```\nEnjoy.", want: "SELECT id FROM t;"},
		{name: "sql fence same line", raw: "```sql SELECT 1```", want: "SELECT 1"},
		{name: "first sql fence wins", raw: "```sql\nSELECT 1\n```\n```sql\nSELECT 2\n```", want: "SELECT 1"},
		{name: "bare sql", raw: "  SELECT name FROM employees  \n", want: "SELECT name FROM employees"},
		{name: "unterminated sql fence", raw: "```sql\nSELECT 1", want: "```sql\nSELECT 1"},
		{name: "plain fence is not unwrapped", raw: "```\nSELECT 1\n```", want: "```\nSELECT 1\n```"},
		{name: "other language fence is not unwrapped", raw: "Answer:\n```postgresql\nSELECT 1\n```", want: "Answer:\n```postgresql\nSELECT 1\n```"},
		{name: "uppercase SQL fence is not unwrapped", raw: "```SQL\nSELECT 1\n```", want: "```SQL\nSELECT 1\n```"},
		{name: "sqlite fence is not sql fence", raw: "```sqlite\nSELECT 1\n```", want: "```sqlite\nSELECT 1\n```"},
		{name: "sql fence found after another fence", raw: "```text\nnote\n```\n```sql\nSELECT 3\n```", want: "SELECT 3"},
		{name: "delete passes through", raw: "DELETE FROM employees", want: "DELETE FROM employees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSQL(tt.raw); got != tt.want {
				t.Fatalf("ExtractSQL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
