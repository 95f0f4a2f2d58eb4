package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestInteger(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{json.Number("12"), 12, true},
		{json.Number("12.0"), 12, true},
		{json.Number("12.5"), 0, false},
		{float64(3), 3, true},
		{3.25, 0, false},
		{7, 7, true},
		{"7", 0, false},
		{nil, 0, false},
		{math.Inf(1), 0, false},
		{json.Number("9223372036854775807"), math.MaxInt64, true},
		{json.Number("-9223372036854775808"), math.MinInt64, true},
		{json.Number("9223372036854775808"), 0, false},
		{json.Number("9.3e18"), 0, false},
		{float64(1 << 63), 0, false},
		{json.Number("-9.3e18"), 0, false},
	}
	for i, c := range cases {
		got, err := Integer(c.in, "value")
		if c.ok && (err != nil || got != c.want) {
			t.Fatalf("case %d expected %d, got %d (err: %v)", i, c.want, got, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("case %d expected error, got %d", i, got)
		}
	}
}

func TestIntegerOverflowIsValidationError(t *testing.T) {
	v, err := Decode([]byte(`{"id":9223372036854775808}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	obj := v.(map[string]any)

	got, err := Integer(obj["id"], "res.id")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "res.id" {
		t.Fatalf("expected a validation error for res.id, got %d (err: %v)", got, err)
	}
}

func TestNumber(t *testing.T) {
	if got, err := Number(json.Number("0.25"), "value"); err != nil || got != 0.25 {
		t.Fatalf("expected 0.25, got %v (err: %v)", got, err)
	}
	for i, in := range []any{math.NaN(), math.Inf(-1), "1", true, nil} {
		if _, err := Number(in, "value"); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestISO8601DateTime(t *testing.T) {
	valid := []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:00.5+09:00",
		"2024-01-01T12:30:00",
		"2024-01-01",
	}
	for _, s := range valid {
		if _, err := ISO8601DateTime(s, "value"); err != nil {
			t.Errorf("expected %q to be valid: %v", s, err)
		}
	}

	invalid := []any{"yesterday", "2024-02-30T00:00:00Z", "", 1700000000}
	for _, v := range invalid {
		if _, err := ISO8601DateTime(v, "value"); err == nil {
			t.Errorf("expected %v to be rejected", v)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := String(1, "res.files[2].name")
	if err == nil || err.Error() != "res.files[2].name must be a string" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestObjectAndArray(t *testing.T) {
	if _, err := Object([]any{}, "value"); err == nil {
		t.Errorf("expected array to be rejected as object")
	}
	if _, err := Array(map[string]any{}, "value"); err == nil {
		t.Errorf("expected object to be rejected as array")
	}
	if _, err := Bool("true", "value"); err == nil {
		t.Errorf("expected string to be rejected as boolean")
	}
}
