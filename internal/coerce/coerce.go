// Package coerce converts loosely typed store values into numbers. Record
// sources may deliver numeric columns as numerics or numeric strings
// depending on the deployment's schema; all such reads go through here.
package coerce

import (
	"strconv"
	"strings"
)

// Float64 converts v to a float64. The second return is false when v is
// nil, empty, or not a number.
func Float64(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Float64Ptr converts v like Float64 but returns nil for absent or
// non-numeric values, preserving the null/zero distinction.
func Float64Ptr(v any) *float64 {
	f, ok := Float64(v)
	if !ok {
		return nil
	}
	return &f
}

// Float64Or converts v like Float64, falling back to def.
func Float64Or(v any, def float64) float64 {
	f, ok := Float64(v)
	if !ok {
		return def
	}
	return f
}
