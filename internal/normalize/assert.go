package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValidationError reports a field of a server payload that is missing, has
// the wrong type or fails a semantic check. Path names the field the way it
// is reached from the payload root, e.g. res.files[2].id.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be %s", e.Path, e.Reason)
}

func invalid(name, reason string) error {
	return &ValidationError{Path: name, Reason: reason}
}

// Object narrows v to a JSON object.
func Object(v any, name string) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, invalid(name, "an object")
	}
	return obj, nil
}

// Array narrows v to a JSON array.
func Array(v any, name string) ([]any, error) {
	arr, ok := v.([]any)
	if !ok || arr == nil {
		return nil, invalid(name, "an array")
	}
	return arr, nil
}

// String narrows v to a string.
func String(v any, name string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", invalid(name, "a string")
	}
	return s, nil
}

// Bool narrows v to a boolean.
func Bool(v any, name string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, invalid(name, "a boolean")
	}
	return b, nil
}

// Number narrows v to a finite number.
func Number(v any, name string) (float64, error) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(name, "a finite number")
	}
	return f, nil
}

// Integer narrows v to an integral number that fits in an int64.
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
func Integer(v any, name string) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	}

	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, invalid(name, "an integer")
	}
	return int64(f), nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ISO8601DateTime narrows v to a string holding a valid ISO 8601 date or
// date-time and returns the parsed instant. Values without a zone are read as
// UTC.
func ISO8601DateTime(v any, name string) (time.Time, error) {
	s, err := String(v, name)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid(name, "a valid date string")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
