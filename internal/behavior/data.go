package behavior

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// durationValue reads key as a time.Duration, a string in
// time.ParseDuration form, or a number of seconds.
func durationValue(bb *Blackboard, key string) (time.Duration, bool) {
	raw, ok := bb.Value(key)
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case time.Duration:
		return v, true
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		return d, err == nil
	}
	secs, ok := convertValue[float64](raw)
	if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// modeValue reads key as an M, or as the String form of one of values.
func modeValue[M fmt.Stringer](bb *Blackboard, key string, values ...M) (M, bool) {
	var zero M
	raw, ok := bb.Value(key)
	if !ok {
		return zero, false
	}
	if m, ok := raw.(M); ok {
		return m, true
	}
	if s, ok := raw.(string); ok {
		for _, v := range values {
			if v.String() == s {
				return v, true
			}
		}
	}
	return zero, false
}

// weightsValue reads key as a list of numbers.
func weightsValue(bb *Blackboard, key string) ([]float64, bool) {
	raw, _ := bb.Value(key)
	switch v := raw.(type) {
	case []float64:
		return v, true
	case []any:
		out := make([]float64, len(v))
		for i, x := range v {
			f, ok := convertValue[float64](x)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}
