// Package sqlguard is the only gate between generated SQL and the database.
//
// The check is a prefix heuristic, not a SQL parser: a statement is accepted
// when its trimmed, lower-cased text starts with "select" and it contains no
// statement separator other than trailing semicolons. Benign queries written
// with a leading comment or a WITH clause are rejected; that trade-off keeps
// every accepted statement read-only.
package sqlguard

import "strings"

const (
	ReasonEmpty              = "empty query"
	ReasonNotReadOnly        = "not a read-only query"
	ReasonMultipleStatements = "multiple statements are not allowed"
)

type Verdict struct {
	Accepted bool
	Reason   string
}

func Validate(sql string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(sql))
	if normalized == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	if !strings.HasPrefix(normalized, "select") {
		return Verdict{Reason: ReasonNotReadOnly}
	}
	if strings.Contains(StripTrailingSemicolons(normalized), ";") {
		return Verdict{Reason: ReasonMultipleStatements}
	}
	return Verdict{Accepted: true}
}

func StripTrailingSemicolons(sql string) string {
	trimmed := strings.TrimSpace(sql)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
