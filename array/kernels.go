package array

import (
	"fmt"
	"math"
	"slices"

	"github.com/apache/arrow/go/v18/arrow/float16"
	"golang.org/x/exp/constraints"

	"github.com/teenjuna/cfcode/dtype"
)

type number interface {
	constraints.Integer | constraints.Float
}

// Cast converts every element to dtype to. Integer narrowing wraps around, floats are truncated
// toward zero when converted to integers.
func (d *Dense) Cast(to dtype.DType) (*Dense, error) {
	var data any
	switch to {
	case dtype.Bool:
		f := castTo[float64](d.data)
		b := make([]bool, len(f))
		for i, v := range f {
			b[i] = v != 0
		}
		data = b
	case dtype.Int8:
		data = castTo[int8](d.data)
	case dtype.Int16:
		data = castTo[int16](d.data)
	case dtype.Int32:
		data = castTo[int32](d.data)
	case dtype.Int64:
		data = castTo[int64](d.data)
	case dtype.Uint8:
		data = castTo[uint8](d.data)
	case dtype.Uint16:
		data = castTo[uint16](d.data)
	case dtype.Uint32:
		data = castTo[uint32](d.data)
	case dtype.Uint64:
		data = castTo[uint64](d.data)
	case dtype.Float16:
		data = toFloat16(castTo[float32](d.data))
	case dtype.Float32:
		data = castTo[float32](d.data)
	case dtype.Float64:
		data = castTo[float64](d.data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrDType, string(to))
	}
	return &Dense{dt: to, shape: slices.Clone(d.shape), data: data}, nil
}

// FillNaN replaces NaN elements with v. Non-floating arrays can't hold NaN and are returned as
// is.
func (d *Dense) FillNaN(v float64) (*Dense, error) {
	if !d.dt.IsFloat() {
		return d, nil
	}
	return d.floats(
		func(s []float32) []float32 { return fillNaN(s, float32(v)) },
		func(s []float64) []float64 { return fillNaN(s, v) },
	)
}

// Round rounds floating elements half to even. Non-floating arrays are returned as is.
func (d *Dense) Round() (*Dense, error) {
	if !d.dt.IsFloat() {
		return d, nil
	}
	return d.floats(round[float32], round[float64])
}

// Mask replaces every element equal to one of the sentinels with NaN. The array must be floating;
// sentinels are rounded to the array's precision, half precision included, before comparing.
func (d *Dense) Mask(sentinels []float64) (*Dense, error) {
	half := d.dt == dtype.Float16
	return d.floats(
		func(s []float32) []float32 {
			fs := make([]float32, len(sentinels))
			for i, v := range sentinels {
				fs[i] = float32(v)
				if half {
					fs[i] = float16.New(fs[i]).Float32()
				}
			}
			return mask(s, fs)
		},
		func(s []float64) []float64 { return mask(s, sentinels) },
	)
}

// Affine computes v*scale + offset in the array's precision. The array must be floating.
func (d *Dense) Affine(scale, offset float64) (*Dense, error) {
	return d.floats(
		func(s []float32) []float32 { return affine(s, float32(scale), float32(offset)) },
		func(s []float64) []float64 { return affine(s, scale, offset) },
	)
}

// InverseAffine computes (v - offset) / scale in the array's precision. The array must be
// floating.
func (d *Dense) InverseAffine(scale, offset float64) (*Dense, error) {
	return d.floats(
		func(s []float32) []float32 { return inverseAffine(s, float32(scale), float32(offset)) },
		func(s []float64) []float64 { return inverseAffine(s, scale, offset) },
	)
}

// floats applies a kernel in the array's own precision. Half precision is computed in single
// precision and converted back.
func (d *Dense) floats(k32 func([]float32) []float32, k64 func([]float64) []float64) (*Dense, error) {
	var data any
	switch s := d.data.(type) {
	case []float16.Num:
		data = toFloat16(k32(castTo[float32](s)))
	case []float32:
		data = k32(s)
	case []float64:
		data = k64(s)
	default:
		return nil, fmt.Errorf("%w: %s is not floating", ErrDType, d.dt)
	}
	return &Dense{dt: d.dt, shape: slices.Clone(d.shape), data: data}, nil
}

func fillNaN[F constraints.Float](s []F, v F) []F {
	out := make([]F, len(s))
	for i, x := range s {
		if x != x {
			x = v
		}
		out[i] = x
	}
	return out
}

func round[F constraints.Float](s []F) []F {
	out := make([]F, len(s))
	for i, x := range s {
		out[i] = F(math.RoundToEven(float64(x)))
	}
	return out
}

func mask[F constraints.Float](s []F, sentinels []F) []F {
	nan := F(math.NaN())
	out := make([]F, len(s))
	for i, x := range s {
		if slices.Contains(sentinels, x) {
			x = nan
		}
		out[i] = x
	}
	return out
}

func affine[F constraints.Float](s []F, scale, offset F) []F {
	out := make([]F, len(s))
	for i, x := range s {
		out[i] = x*scale + offset
	}
	return out
}

func inverseAffine[F constraints.Float](s []F, scale, offset F) []F {
	out := make([]F, len(s))
	for i, x := range s {
		out[i] = (x - offset) / scale
	}
	return out
}

func convert[From, To number](s []From) []To {
	out := make([]To, len(s))
	for i, v := range s {
		out[i] = To(v)
	}
	return out
}

func castTo[To number](data any) []To {
	switch s := data.(type) {
	case []bool:
		out := make([]To, len(s))
		for i, v := range s {
			if v {
				out[i] = 1
			}
		}
		return out
	case []int8:
		return convert[int8, To](s)
	case []int16:
		return convert[int16, To](s)
	case []int32:
		return convert[int32, To](s)
	case []int64:
		return convert[int64, To](s)
	case []uint8:
		return convert[uint8, To](s)
	case []uint16:
		return convert[uint16, To](s)
	case []uint32:
		return convert[uint32, To](s)
	case []uint64:
		return convert[uint64, To](s)
	case []float16.Num:
		out := make([]To, len(s))
		for i, v := range s {
			out[i] = To(v.Float32())
		}
		return out
	case []float32:
		return convert[float32, To](s)
	case []float64:
		return convert[float64, To](s)
	}
	panic(fmt.Sprintf("unsupported data %T", data))
}

func toFloat16(s []float32) []float16.Num {
	out := make([]float16.Num, len(s))
	for i, v := range s {
		out[i] = float16.New(v)
	}
	return out
}
