// This package contains the [Array] abstraction the coders operate on, an in-memory [Dense]
// implementation with the elementwise kernels the coders need, and [Map], the lazy elementwise
// transform.
package array

import (
	"errors"
	"fmt"

	"github.com/teenjuna/cfcode/dtype"
)

var (
	// ErrShape is returned when data doesn't match the declared shape.
	ErrShape = errors.New("invalid shape")
	// ErrIndex is returned when an index range is outside of the array.
	ErrIndex = errors.New("index out of range")
	// ErrDType is returned when an operation doesn't support the array's dtype.
	ErrDType = errors.New("unsupported dtype")
	// ErrDTypeMismatch is returned when a lazy function produces a different dtype than declared.
	ErrDTypeMismatch = errors.New("dtype mismatch")
)

// Array is an N-dimensional array whose dtype and shape are known without computing its values.
//
// Implementations must be safe to materialize from multiple goroutines.
type Array interface {
	// DType returns the dtype of the elements.
	DType() dtype.DType
	// Shape returns the length of every dimension. The returned slice must not be modified.
	Shape() []int
	// Index returns the sub-array selected by one range per leading dimension. Missing ranges
	// select the whole dimension.
	Index(ranges ...Range) (Array, error)
	// Materialize computes the values of the array.
	//
	// Repeated calls return equal results and never modify any source array.
	Materialize() (*Dense, error)
}

// Range selects the half-open interval [Start, Stop) of a dimension. A negative Stop extends the
// range to the end of the dimension.
type Range struct {
	Start int
	Stop  int
}

// All selects a whole dimension.
var All = Range{Start: 0, Stop: -1}

func (r Range) resolve(n int) (int, int, error) {
	start, stop := r.Start, r.Stop
	if stop < 0 {
		stop = n
	}
	if start < 0 || start > stop || stop > n {
		return 0, 0, fmt.Errorf("%w: [%d:%d] of dimension with length %d", ErrIndex, r.Start, r.Stop, n)
	}
	return start, stop, nil
}

// resolveRanges returns absolute starts and the resulting shape for ranges applied to shape.
func resolveRanges(shape []int, ranges []Range) ([]int, []int, error) {
	if len(ranges) > len(shape) {
		return nil, nil, fmt.Errorf("%w: %d ranges for %d dimensions", ErrIndex, len(ranges), len(shape))
	}
	starts := make([]int, len(shape))
	out := make([]int, len(shape))
	for i, n := range shape {
		r := All
		if i < len(ranges) {
			r = ranges[i]
		}
		start, stop, err := r.resolve(n)
		if err != nil {
			return nil, nil, err
		}
		starts[i] = start
		out[i] = stop - start
	}
	return starts, out, nil
}

// Size returns the number of elements of an array with the given shape.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
