package dtype

import (
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow/go/v18/arrow/float16"
)

var (
	// ErrCast is returned when a value can't be represented in the requested dtype.
	ErrCast = errors.New("can't cast value")
)

// scalar is a numeric value widened to the widest Go type of its kind.
type scalar struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
}

func scalarOf(v any) (scalar, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return scalar{kind: KindBool, i: 1}, true
		}
		return scalar{kind: KindBool}, true
	case int:
		return scalar{kind: KindInt, i: int64(x)}, true
	case int8:
		return scalar{kind: KindInt, i: int64(x)}, true
	case int16:
		return scalar{kind: KindInt, i: int64(x)}, true
	case int32:
		return scalar{kind: KindInt, i: int64(x)}, true
	case int64:
		return scalar{kind: KindInt, i: x}, true
	case uint:
		return scalar{kind: KindUint, u: uint64(x)}, true
	case uint8:
		return scalar{kind: KindUint, u: uint64(x)}, true
	case uint16:
		return scalar{kind: KindUint, u: uint64(x)}, true
	case uint32:
		return scalar{kind: KindUint, u: uint64(x)}, true
	case uint64:
		return scalar{kind: KindUint, u: x}, true
	case float16.Num:
		return scalar{kind: KindFloat, f: float64(x.Float32())}, true
	case float32:
		return scalar{kind: KindFloat, f: float64(x)}, true
	case float64:
		return scalar{kind: KindFloat, f: x}, true
	}
	return scalar{}, false
}

func (s scalar) float() float64 {
	switch s.kind {
	case KindUint:
		return float64(s.u)
	case KindFloat:
		return s.f
	}
	return float64(s.i)
}

// int returns the value as a two's-complement 64-bit pattern, so that narrowing conversions wrap
// the same way for signed and unsigned targets.
func (s scalar) int() (int64, error) {
	switch s.kind {
	case KindUint:
		return int64(s.u), nil
	case KindFloat:
		if math.IsNaN(s.f) || math.IsInf(s.f, 0) {
			return 0, fmt.Errorf("%w: %v to integer", ErrCast, s.f)
		}
		if s.f >= math.MaxInt64 {
			return int64(uint64(s.f)), nil
		}
		return int64(s.f), nil
	}
	return s.i, nil
}

func (s scalar) to(d DType) (any, error) {
	if d.IsFloat() {
		f := s.float()
		switch d {
		case Float16:
			return float16.New(float32(f)), nil
		case Float32:
			return float32(f), nil
		default:
			return f, nil
		}
	}
	if d == Bool {
		return s.float() != 0, nil
	}

	i, err := s.int()
	if err != nil {
		return nil, err
	}
	switch d {
	case Int8:
		return int8(i), nil
	case Int16:
		return int16(i), nil
	case Int32:
		return int32(i), nil
	case Int64:
		return i, nil
	case Uint8:
		return uint8(i), nil
	case Uint16:
		return uint16(i), nil
	case Uint32:
		return uint32(i), nil
	case Uint64:
		return uint64(i), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknown, d)
}

// Cast converts a scalar, or every element of a slice, to d. Nil stays nil. Slices become typed
// slices of d's Go type.
func Cast(d DType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, string(d))
	}

	if s, ok := scalarOf(v); ok {
		return s.to(d)
	}

	elems, ok := elements(v)
	if !ok {
		return nil, fmt.Errorf("%w: %v (%T) to %s", ErrCast, v, v, d)
	}

	out := make([]any, len(elems))
	for i, e := range elems {
		if e == nil && d.IsFloat() {
			e = math.NaN()
		}
		s, ok := scalarOf(e)
		if !ok {
			return nil, fmt.Errorf("%w: %v (%T) to %s", ErrCast, e, e, d)
		}
		c, err := s.to(d)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return typed(d, out), nil
}

// AsFloat64 returns a numeric scalar as a float64.
func AsFloat64(v any) (float64, bool) {
	s, ok := scalarOf(v)
	if !ok {
		return 0, false
	}
	return s.float(), true
}

// IsNull reports whether v is nil or a floating NaN.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case float16.Num:
		return x.IsNaN()
	}
	return false
}

// Of returns the dtype of a Go scalar or typed slice.
func Of(v any) (DType, bool) {
	switch v.(type) {
	case bool, []bool:
		return Bool, true
	case int8, []int8:
		return Int8, true
	case int16, []int16:
		return Int16, true
	case int32, []int32:
		return Int32, true
	case int64, int, []int64, []int:
		return Int64, true
	case uint8, []uint8:
		return Uint8, true
	case uint16, []uint16:
		return Uint16, true
	case uint32, []uint32:
		return Uint32, true
	case uint64, uint, []uint64, []uint:
		return Uint64, true
	case float16.Num, []float16.Num:
		return Float16, true
	case float32, []float32:
		return Float32, true
	case float64, []float64:
		return Float64, true
	}
	return "", false
}

// Flatten returns the scalars held by v: v itself for a scalar, the elements of a slice
// (recursively for nested []any) and nothing for nil.
func Flatten(v any) []any {
	if v == nil {
		return nil
	}
	elems, ok := elements(v)
	if !ok {
		return []any{v}
	}
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		out = append(out, Flatten(e)...)
	}
	return out
}

// Scalar reduces a single-element slice to its element. Scalars are returned as is.
func Scalar(v any) (any, bool) {
	elems, ok := elements(v)
	if !ok {
		return v, true
	}
	if len(elems) != 1 {
		return nil, false
	}
	return Scalar(elems[0])
}

func elements(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []bool:
		return boxed(s), true
	case []int:
		return boxed(s), true
	case []int8:
		return boxed(s), true
	case []int16:
		return boxed(s), true
	case []int32:
		return boxed(s), true
	case []int64:
		return boxed(s), true
	case []uint:
		return boxed(s), true
	case []uint8:
		return boxed(s), true
	case []uint16:
		return boxed(s), true
	case []uint32:
		return boxed(s), true
	case []uint64:
		return boxed(s), true
	case []float16.Num:
		return boxed(s), true
	case []float32:
		return boxed(s), true
	case []float64:
		return boxed(s), true
	}
	return nil, false
}

func boxed[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func unboxed[T any](s []any) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = v.(T)
	}
	return out
}

// typed converts a slice of values already cast to d into d's Go slice type.
func typed(d DType, s []any) any {
	switch d {
	case Bool:
		return unboxed[bool](s)
	case Int8:
		return unboxed[int8](s)
	case Int16:
		return unboxed[int16](s)
	case Int32:
		return unboxed[int32](s)
	case Int64:
		return unboxed[int64](s)
	case Uint8:
		return unboxed[uint8](s)
	case Uint16:
		return unboxed[uint16](s)
	case Uint32:
		return unboxed[uint32](s)
	case Uint64:
		return unboxed[uint64](s)
	case Float16:
		return unboxed[float16.Num](s)
	case Float32:
		return unboxed[float32](s)
	}
	return unboxed[float64](s)
}
