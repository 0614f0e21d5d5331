package core

// convert.go coerces raw cell values into typed person fields.
//
// CSV cells always arrive as strings. JSON bodies (single insert, updates)
// arrive as float64, json.Number, bool or string. Both go through the same
// functions so a record means the same thing whatever path created it.

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// falseTokens are the only strings that coerce to false, compared after
// trimming whitespace and ignoring case. Everything else is true.
var falseTokens = map[string]bool{
	"false": true,
	"0":     true,
	"":      true,
}

// ToInt coerces a raw value to an integer age.
// Accepts decimal strings (surrounding whitespace ignored), Go integers and
// integral JSON numbers that fit in an int. Booleans, fractions, out of range
// numbers and other text are rejected.
func ToInt(v any) (int, bool) {
	switch val := v.(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return i, true
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return 0, false
		}
		// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive.
		if val < math.MinInt || val >= math.MaxInt {
			return 0, false
		}
		return int(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), true
		}
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return ToInt(f)
	default:
		return 0, false
	}
}

// ToBool coerces a raw value to a status flag.
// Booleans pass through; strings are false only for the falseTokens;
// numbers are false only when zero.
func ToBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		return !falseTokens[strings.ToLower(strings.TrimSpace(val))], true
	case int:
		return val != 0, true
	case int64:
		return val != 0, true
	case float64:
		if math.IsNaN(val) {
			return false, false
		}
		return val != 0, true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	default:
		return false, false
	}
}

// ToText renders a raw value as text. Strings are returned verbatim.
func ToText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
