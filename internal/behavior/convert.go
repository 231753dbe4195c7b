package behavior

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// convertValue coerces v into a T. Values already of type T are returned
// as-is; otherwise numbers, bools and strings convert between each other,
// and values whose kind matches T's underlying kind are converted directly.
func convertValue[T any](v any) (T, bool) {
	var zero T
	if t, ok := v.(T); ok {
		return t, true
	}
	if v == nil {
		return zero, false
	}
	target := reflect.TypeFor[T]()
	if target.Kind() == reflect.Interface {
		return zero, false
	}
	out, ok := convertReflect(reflect.ValueOf(v), target)
	if !ok {
		return zero, false
	}
	t, ok := out.Interface().(T)
	return t, ok
}

func convertReflect(src reflect.Value, target reflect.Type) (reflect.Value, bool) {
	out := reflect.New(target).Elem()
	switch k := target.Kind(); {
	case isIntKind(k):
		i, ok := asInt(src)
		if !ok || out.OverflowInt(i) {
			return reflect.Value{}, false
		}
		out.SetInt(i)
	case isUintKind(k):
		u, ok := asUint(src)
		if !ok || out.OverflowUint(u) {
			return reflect.Value{}, false
		}
		out.SetUint(u)
	case k == reflect.Float32 || k == reflect.Float64:
		f, ok := asFloat(src)
		if !ok || out.OverflowFloat(f) {
			return reflect.Value{}, false
		}
		out.SetFloat(f)
	case k == reflect.Bool:
		b, ok := asBool(src)
		if !ok {
			return reflect.Value{}, false
		}
		out.SetBool(b)
	case k == reflect.String:
		s, ok := asString(src)
		if !ok {
			return reflect.Value{}, false
		}
		out.SetString(s)
	case src.Kind() == k && src.Type().ConvertibleTo(target):
		return src.Convert(target), true
	default:
		return reflect.Value{}, false
	}
	return out, true
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func asInt(v reflect.Value) (int64, bool) {
	switch k := v.Kind(); {
	case isIntKind(k):
		return v.Int(), true
	case isUintKind(k):
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case k == reflect.Float32 || k == reflect.Float64:
		f := math.RoundToEven(v.Float())
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case k == reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case k == reflect.String:
		i, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func asUint(v reflect.Value) (uint64, bool) {
	switch k := v.Kind(); {
	case isUintKind(k):
		return v.Uint(), true
	case k == reflect.String:
		u, err := strconv.ParseUint(strings.TrimSpace(v.String()), 10, 64)
		return u, err == nil
	case k == reflect.Float32 || k == reflect.Float64:
		f := math.RoundToEven(v.Float())
		if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	i, ok := asInt(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func asFloat(v reflect.Value) (float64, bool) {
	switch k := v.Kind(); {
	case isIntKind(k):
		return float64(v.Int()), true
	case isUintKind(k):
		return float64(v.Uint()), true
	case k == reflect.Float32 || k == reflect.Float64:
		return v.Float(), true
	case k == reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case k == reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f, err == nil
	}
	return 0, false
}

func asBool(v reflect.Value) (bool, bool) {
	switch k := v.Kind(); {
	case k == reflect.Bool:
		return v.Bool(), true
	case k == reflect.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.String()))
		return b, err == nil
	}
	if f, ok := asFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

func asString(v reflect.Value) (string, bool) {
	switch k := v.Kind(); {
	case k == reflect.String:
		return v.String(), true
	case isIntKind(k):
		return strconv.FormatInt(v.Int(), 10), true
	case isUintKind(k):
		return strconv.FormatUint(v.Uint(), 10), true
	case k == reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), true
	case k == reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), true
	case k == reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	}
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String(), true
		}
	}
	return "", false
}
