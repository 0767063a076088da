package array

import (
	"fmt"

	"github.com/teenjuna/cfcode/dtype"
)

// View returns a lazily sliced window into src. Materializing the view materializes src and
// copies the selected elements, so it suits sources that can only be read whole.
func View(src Array, ranges ...Range) (Array, error) {
	starts, shape, err := resolveRanges(src.Shape(), ranges)
	if err != nil {
		return nil, err
	}
	if v, ok := src.(*view); ok {
		for i := range starts {
			starts[i] += v.starts[i]
		}
		src = v.src
	}
	return &view{src: src, starts: starts, shape: shape}, nil
}

type view struct {
	src    Array
	starts []int
	shape  []int
}

func (v *view) DType() dtype.DType {
	return v.src.DType()
}

func (v *view) Shape() []int {
	return v.shape
}

func (v *view) Index(ranges ...Range) (Array, error) {
	return View(v, ranges...)
}

func (v *view) Materialize() (*Dense, error) {
	d, err := v.src.Materialize()
	if err != nil {
		return nil, err
	}
	return d.Slice(v.ranges()...)
}

func (v *view) ranges() []Range {
	ranges := make([]Range, len(v.starts))
	for i, s := range v.starts {
		ranges[i] = Range{Start: s, Stop: s + v.shape[i]}
	}
	return ranges
}

func (v *view) String() string {
	return fmt.Sprintf("View(%v, %v)", v.src, v.ranges())
}
