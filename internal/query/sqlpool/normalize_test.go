package sqlpool

import (
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestNormalizeValuesDecodesPostgresTypes(t *testing.T) {
	price := mustNumeric(t, "12.50")
	nan := mustNumeric(t, "NaN")
	id := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	got := normalizeValues([]any{
		[]any{"a", "b"},
		price,
		pgtype.Numeric{},
		nan,
		map[string]any{"k": []any{float64(1), float64(2)}, "price": price},
		[]any{price, nil},
		id,
		[]byte("raw"),
	})
	want := []any{
		[]any{"a", "b"},
		12.5,
		nil,
		"NaN",
		map[string]any{"k": []any{float64(1), float64(2)}, "price": 12.5},
		[]any{12.5, nil},
		"12345678-9abc-def0-0123-456789abcdef",
		"raw",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeValues() = %#v, want %#v", got, want)
	}
}

func mustNumeric(t *testing.T, text string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(text); err != nil {
		t.Fatalf("Numeric.Scan(%q) error = %v", text, err)
	}
	return n
}
