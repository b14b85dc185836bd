package nl2sql

import "strings"

const (
	fence    = "```"
	sqlFence = "```sql"
)

// ExtractSQL pulls the statement out of a model reply: the body of the first
// ```sql fenced block, or else the whole reply trimmed. Other fences are not
// unwrapped, and an unterminated fence falls through to the whole reply.
func ExtractSQL(raw string) string {
	if raw == "" {
		return ""
	}
	if body, ok := sqlFencedBlock(raw); ok {
		return body
	}
	return strings.TrimSpace(raw)
}

func sqlFencedBlock(raw string) (string, bool) {
	offset := 0
	for {
		start := strings.Index(raw[offset:], sqlFence)
		if start < 0 {
			return "", false
		}
		bodyStart := offset + start + len(sqlFence)
		// "```sqlite" and similar are other languages.
		if bodyStart < len(raw) && !isSpace(raw[bodyStart]) {
			offset = bodyStart
			continue
		}
		end := strings.Index(raw[bodyStart:], fence)
		if end < 0 {
			return "", false
		}
		return strings.TrimSpace(raw[bodyStart : bodyStart+end]), true
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
