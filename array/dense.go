package array

import (
	"fmt"
	"slices"

	"github.com/apache/arrow/go/v18/arrow/float16"

	"github.com/teenjuna/cfcode/dtype"
)

// Element is a Go type that can be stored in a [Dense] array.
type Element interface {
	bool |
		int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float16.Num | float32 | float64
}

// Dense is an in-memory array stored in row-major order.
//
// A Dense array is never modified after creation: every operation allocates its result.
type Dense struct {
	dt    dtype.DType
	shape []int
	data  any
}

var _ Array = (*Dense)(nil)

// New creates a Dense array from a typed slice ([]int16, []float64, ...). Without a shape the
// array is one-dimensional. The slice is owned by the array afterwards.
func New(data any, shape ...int) (*Dense, error) {
	dt, n, ok := sliceInfo(data)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrDType, data)
	}
	if len(shape) == 0 {
		shape = []int{n}
	}
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
	}
	if Size(shape) != n {
		return nil, fmt.Errorf("%w: %d elements don't fit shape %v", ErrShape, n, shape)
	}
	return &Dense{dt: dt, shape: slices.Clone(shape), data: data}, nil
}

// Of creates a one-dimensional Dense array holding a copy of values.
func Of[T Element](values ...T) *Dense {
	d, _ := New(slices.Clone(values))
	return d
}

// FromValues creates a Dense array of dtype dt from loosely typed values. Nil becomes NaN for
// floating dtypes.
func FromValues(dt dtype.DType, values []any, shape ...int) (*Dense, error) {
	data, err := dtype.Cast(dt, values)
	if err != nil {
		return nil, err
	}
	return New(data, shape...)
}

func (d *Dense) DType() dtype.DType {
	return d.dt
}

func (d *Dense) Shape() []int {
	return d.shape
}

// Len returns the number of elements.
func (d *Dense) Len() int {
	return Size(d.shape)
}

// Values returns the underlying typed slice. It must not be modified.
func (d *Dense) Values() any {
	return d.data
}

// At returns the element at flat row-major position i.
func (d *Dense) At(i int) any {
	switch s := d.data.(type) {
	case []bool:
		return s[i]
	case []int8:
		return s[i]
	case []int16:
		return s[i]
	case []int32:
		return s[i]
	case []int64:
		return s[i]
	case []uint8:
		return s[i]
	case []uint16:
		return s[i]
	case []uint32:
		return s[i]
	case []uint64:
		return s[i]
	case []float16.Num:
		return s[i]
	case []float32:
		return s[i]
	case []float64:
		return s[i]
	}
	return nil
}

func (d *Dense) Index(ranges ...Range) (Array, error) {
	return d.Slice(ranges...)
}

// Slice copies the sub-array selected by ranges.
func (d *Dense) Slice(ranges ...Range) (*Dense, error) {
	starts, shape, err := resolveRanges(d.shape, ranges)
	if err != nil {
		return nil, err
	}

	var (
		ndim    = len(shape)
		total   = Size(shape)
		strides = make([]int, ndim)
		idx     = make([]int, 0, total)
	)
	stride := 1
	for i := ndim - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= d.shape[i]
	}

	if total > 0 {
		counter := make([]int, ndim)
		for {
			off := 0
			for k := range counter {
				off += (starts[k] + counter[k]) * strides[k]
			}
			idx = append(idx, off)

			k := ndim - 1
			for ; k >= 0; k-- {
				counter[k]++
				if counter[k] < shape[k] {
					break
				}
				counter[k] = 0
			}
			if k < 0 {
				break
			}
		}
	}

	return &Dense{dt: d.dt, shape: shape, data: gather(d.data, idx)}, nil
}

func (d *Dense) Materialize() (*Dense, error) {
	return d, nil
}

func (d *Dense) String() string {
	return fmt.Sprintf("Dense(%s%v, %v)", d.dt, d.shape, d.data)
}

// Concat joins arrays along the first dimension. All arrays must share dtype and trailing shape.
func Concat(parts ...*Dense) (*Dense, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}
	first := parts[0]
	if len(first.shape) == 0 {
		return nil, fmt.Errorf("%w: can't concatenate scalars", ErrShape)
	}

	shape := slices.Clone(first.shape)
	shape[0] = 0
	data := make([]any, len(parts))
	for i, p := range parts {
		if p.dt != first.dt {
			return nil, fmt.Errorf("%w: %s and %s", ErrDTypeMismatch, first.dt, p.dt)
		}
		if len(p.shape) != len(shape) || !slices.Equal(p.shape[1:], shape[1:]) {
			return nil, fmt.Errorf("%w: %v and %v", ErrShape, first.shape, p.shape)
		}
		shape[0] += p.shape[0]
		data[i] = p.data
	}

	return &Dense{dt: first.dt, shape: shape, data: concat(first.data, data)}, nil
}

func sliceInfo(data any) (dtype.DType, int, bool) {
	switch s := data.(type) {
	case []bool:
		return dtype.Bool, len(s), true
	case []int8:
		return dtype.Int8, len(s), true
	case []int16:
		return dtype.Int16, len(s), true
	case []int32:
		return dtype.Int32, len(s), true
	case []int64:
		return dtype.Int64, len(s), true
	case []uint8:
		return dtype.Uint8, len(s), true
	case []uint16:
		return dtype.Uint16, len(s), true
	case []uint32:
		return dtype.Uint32, len(s), true
	case []uint64:
		return dtype.Uint64, len(s), true
	case []float16.Num:
		return dtype.Float16, len(s), true
	case []float32:
		return dtype.Float32, len(s), true
	case []float64:
		return dtype.Float64, len(s), true
	}
	return "", 0, false
}

func gather(data any, idx []int) any {
	switch s := data.(type) {
	case []bool:
		return gatherT(s, idx)
	case []int8:
		return gatherT(s, idx)
	case []int16:
		return gatherT(s, idx)
	case []int32:
		return gatherT(s, idx)
	case []int64:
		return gatherT(s, idx)
	case []uint8:
		return gatherT(s, idx)
	case []uint16:
		return gatherT(s, idx)
	case []uint32:
		return gatherT(s, idx)
	case []uint64:
		return gatherT(s, idx)
	case []float16.Num:
		return gatherT(s, idx)
	case []float32:
		return gatherT(s, idx)
	case []float64:
		return gatherT(s, idx)
	}
	panic(fmt.Sprintf("unsupported data %T", data))
}

func gatherT[T Element](s []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}

func concat(kind any, parts []any) any {
	switch kind.(type) {
	case []bool:
		return concatT[bool](parts)
	case []int8:
		return concatT[int8](parts)
	case []int16:
		return concatT[int16](parts)
	case []int32:
		return concatT[int32](parts)
	case []int64:
		return concatT[int64](parts)
	case []uint8:
		return concatT[uint8](parts)
	case []uint16:
		return concatT[uint16](parts)
	case []uint32:
		return concatT[uint32](parts)
	case []uint64:
		return concatT[uint64](parts)
	case []float16.Num:
		return concatT[float16.Num](parts)
	case []float32:
		return concatT[float32](parts)
	case []float64:
		return concatT[float64](parts)
	}
	panic(fmt.Sprintf("unsupported data %T", kind))
}

func concatT[T Element](parts []any) []T {
	n := 0
	for _, p := range parts {
		n += len(p.([]T))
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p.([]T)...)
	}
	return out
}
