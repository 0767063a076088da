package dtype

import "math"

// ChooseFloat returns a float dtype that can represent values of d after an affine transform.
//
// Half precision is upcast to single precision and single precision is kept. Integers of up to
// 16 bits fit exactly into a float32 mantissa, but only when no offset is involved: a large
// offset can push values out of the exactly representable range, so any offset gets float64.
// Everything else gets float64.
func ChooseFloat(d DType, hasOffset bool) DType {
	if d.IsFloat() && d.Size() <= 4 {
		return Float32
	}
	if d.IsInteger() && d.Size() <= 2 && !hasOffset {
		return Float32
	}
	return Float64
}

// MaybePromote returns the smallest dtype that can hold every value of d plus a null value, and
// that null value.
func MaybePromote(d DType) (DType, any) {
	nan := math.NaN()
	switch {
	case d.IsFloat():
		return d, nan
	case d.IsInteger() && d.Size() <= 2:
		return Float32, nan
	case d.IsInteger():
		return Float64, nan
	}
	return Float32, nan
}
