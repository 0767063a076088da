package cfcode

import (
	"math"
	"reflect"
	"slices"

	"github.com/teenjuna/cfcode/dtype"
)

const (
	absTolerance = 1e-8
	relTolerance = 1e-5
)

// allClose reports whether a and b are element-wise equal within tolerance. NaN equals NaN and a
// single value is compared against every element of the other side.
func allClose(a, b any) bool {
	av, bv := dtype.Flatten(a), dtype.Flatten(b)
	switch {
	case len(av) == 1 && len(bv) > 1:
		av = slices.Repeat(av, len(bv))
	case len(bv) == 1 && len(av) > 1:
		bv = slices.Repeat(bv, len(av))
	}
	if len(av) != len(bv) {
		return false
	}

	for i := range av {
		if !isClose(av[i], bv[i]) {
			return false
		}
	}
	return true
}

func isClose(a, b any) bool {
	if a == nil || b == nil {
		return dtype.IsNull(a) && dtype.IsNull(b)
	}
	x, okA := dtype.AsFloat64(a)
	y, okB := dtype.AsFloat64(b)
	if !okA || !okB {
		return reflect.DeepEqual(a, b)
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return x == y
	}
	return math.Abs(x-y) <= absTolerance+relTolerance*math.Abs(y)
}

// appendSentinels appends the numeric elements of a fill value attribute to out. Null and
// non-numeric elements can't equal any element of the data, so they mask nothing.
func appendSentinels(out []float64, value any) []float64 {
	for _, e := range dtype.Flatten(value) {
		if dtype.IsNull(e) {
			continue
		}
		if f, ok := dtype.AsFloat64(e); ok {
			out = append(out, f)
		}
	}
	return out
}

// first returns the first element of an array-valued v, or v itself.
func first(v any) any {
	if values := dtype.Flatten(v); len(values) > 0 {
		return values[0]
	}
	return nil
}

// scalarFloat reduces a scale or offset attribute to a number.
func scalarFloat(name, key string, value any) (float64, error) {
	s, ok := dtype.Scalar(value)
	if !ok {
		return 0, invalidAttribute(name, key, value, "must hold a single value")
	}
	f, ok := dtype.AsFloat64(s)
	if !ok {
		return 0, invalidAttribute(name, key, value, "is not numeric")
	}
	return f, nil
}
