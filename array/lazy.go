package array

import (
	"fmt"
	"slices"

	"github.com/teenjuna/cfcode/dtype"
)

// Func is a pure elementwise function over a materialized array.
//
// A Func must not modify its argument and must be safe to call concurrently on different blocks
// in any order.
type Func func(*Dense) (*Dense, error)

// BlockMapper is implemented by arrays partitioned into independently computable blocks. Such
// arrays apply elementwise functions block by block instead of wrapping themselves.
type BlockMapper interface {
	Array
	// MapBlocks returns an array that applies fn to every block on materialization. The result
	// elements have dtype dt.
	MapBlocks(fn Func, dt dtype.DType) Array
}

// Map lazily applies fn to src. The result has dtype dt and the shape of src.
//
// When src is a [BlockMapper] the function is registered with it, otherwise src is wrapped with
// [Defer].
func Map(src Array, fn Func, dt dtype.DType) Array {
	if bm, ok := src.(BlockMapper); ok {
		return bm.MapBlocks(fn, dt)
	}
	return Defer(src, fn, dt)
}

// Defer wraps src into a node that applies fn when materialized. Indexing the node indexes src
// and keeps fn, so only the selected elements are ever computed.
func Defer(src Array, fn Func, dt dtype.DType) Array {
	return &elementwise{src: src, fn: fn, dt: dt}
}

type elementwise struct {
	src Array
	fn  Func
	dt  dtype.DType
}

func (e *elementwise) DType() dtype.DType {
	return e.dt
}

func (e *elementwise) Shape() []int {
	return e.src.Shape()
}

func (e *elementwise) Index(ranges ...Range) (Array, error) {
	sub, err := e.src.Index(ranges...)
	if err != nil {
		return nil, err
	}
	return &elementwise{src: sub, fn: e.fn, dt: e.dt}, nil
}

func (e *elementwise) Materialize() (*Dense, error) {
	src, err := e.src.Materialize()
	if err != nil {
		return nil, err
	}
	out, err := e.fn(src)
	if err != nil {
		return nil, err
	}
	if out.dt != e.dt {
		return nil, fmt.Errorf("%w: declared %s, got %s", ErrDTypeMismatch, e.dt, out.dt)
	}
	if !slices.Equal(out.shape, src.shape) {
		return nil, fmt.Errorf("%w: elementwise function changed %v to %v", ErrShape, src.shape, out.shape)
	}
	return out, nil
}

func (e *elementwise) String() string {
	return fmt.Sprintf("Elementwise(%v, dtype=%s)", e.src, e.dt)
}
