package models

import (
	"encoding/json"
	"strconv"
)

// Coercion helpers shared by the condition evaluator and trigger config
// matching. Raw values arrive from JSON payloads, so numbers may be float64,
// json.Number or numeric strings depending on the producer.

// NumberValue coerces a raw value to float64.
func NumberValue(raw any) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0, false
		}

		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

// TextValue coerces a raw value to a string. Only genuine text coerces;
// numbers and booleans do not silently stringify.
func TextValue(raw any) (string, bool) {
	value, ok := raw.(string)

	return value, ok
}

// BoolValue coerces a raw value to a boolean. The strings "true"/"false" are
// accepted because several producers serialize flags that way.
func BoolValue(raw any) (bool, bool) {
	switch value := raw.(type) {
	case bool:
		return value, true
	case string:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, false
		}

		return parsed, true
	default:
		return false, false
	}
}

// ArrayValue coerces a raw value to a slice of values.
func ArrayValue(raw any) ([]any, bool) {
	switch value := raw.(type) {
	case []any:
		return value, true
	case []string:
		items := make([]any, len(value))
		for i, item := range value {
			items[i] = item
		}

		return items, true
	default:
		return nil, false
	}
}
