// Package normalize turns loosely formatted upstream values into typed ones.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber parses a decimal that may use a comma separator ("12,5").
// Blank or non-finite input yields nil.
func ToNumber(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	value, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil
	}
	return &value
}

// ValueToNumber applies ToNumber to a decoded field value.
func ValueToNumber(v any) *float64 {
	text, ok := Text(v)
	if !ok {
		return nil
	}
	return ToNumber(text)
}

// Text renders a scalar field value as a string. Objects, arrays and nulls are not text.
func Text(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// NonEmptyText is Text that also rejects blank strings.
func NonEmptyText(v any) (string, bool) {
	text, ok := Text(v)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}
