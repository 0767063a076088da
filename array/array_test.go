package array_test

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/float16"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/dtype"
)

var nan = math.NaN()

func equalValues(t *testing.T, want, got any) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestNew(t *testing.T) {
	d, err := array.New([]int16{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	require.Equal(t, dtype.Int16, d.DType())
	require.Equal(t, []int{2, 3}, d.Shape())
	require.Equal(t, 6, d.Len())
	require.Equal(t, int16(5), d.At(4))

	_, err = array.New([]int16{1, 2, 3}, 2, 2)
	require.ErrorIs(t, err, array.ErrShape)

	_, err = array.New([]int{1, 2})
	require.ErrorIs(t, err, array.ErrDType)

	scalar, err := array.New([]float64{7})
	require.NoError(t, err)
	require.Equal(t, []int{1}, scalar.Shape())

	d, err = array.FromValues(dtype.Float32, []any{1, nil, 2.5})
	require.NoError(t, err)
	equalValues(t, []float32{1, float32(nan), 2.5}, d.Values())

	_, err = array.FromValues(dtype.Int8, []any{1, nil})
	require.ErrorIs(t, err, dtype.ErrCast)
}

func TestSlice(t *testing.T) {
	d, err := array.New([]int32{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}, 3, 4)
	require.NoError(t, err)

	s, err := d.Slice(array.Range{Start: 1, Stop: 3}, array.Range{Start: 1, Stop: 3})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, s.Shape())
	require.Equal(t, []int32{5, 6, 9, 10}, s.Values())

	s, err = d.Slice(array.Range{Start: 2, Stop: -1})
	require.NoError(t, err)
	require.Equal(t, []int{1, 4}, s.Shape())
	require.Equal(t, []int32{8, 9, 10, 11}, s.Values())

	s, err = d.Slice(array.All, array.Range{Start: 3, Stop: 3})
	require.NoError(t, err)
	require.Equal(t, []int{3, 0}, s.Shape())
	require.Equal(t, 0, s.Len())

	_, err = d.Slice(array.Range{Start: 2, Stop: 5})
	require.ErrorIs(t, err, array.ErrIndex)

	_, err = d.Slice(array.All, array.All, array.All)
	require.ErrorIs(t, err, array.ErrIndex)

	// The source is left untouched.
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, d.Values())
}

func TestConcat(t *testing.T) {
	a, _ := array.New([]uint8{1, 2, 3, 4}, 2, 2)
	b, _ := array.New([]uint8{5, 6}, 1, 2)

	c, err := array.Concat(a, b)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2}, c.Shape())
	require.Equal(t, []uint8{1, 2, 3, 4, 5, 6}, c.Values())

	_, err = array.Concat(a, array.Of[int8](1, 2))
	require.ErrorIs(t, err, array.ErrDTypeMismatch)

	odd, _ := array.New([]uint8{1, 2, 3}, 1, 3)
	_, err = array.Concat(a, odd)
	require.ErrorIs(t, err, array.ErrShape)
}

func TestCast(t *testing.T) {
	d := array.Of[int8](-1, 0, 127)

	u, err := d.Cast(dtype.Uint8)
	require.NoError(t, err)
	require.Equal(t, dtype.Uint8, u.DType())
	require.Equal(t, []uint8{255, 0, 127}, u.Values())

	f, err := d.Cast(dtype.Float16)
	require.NoError(t, err)
	require.Equal(t, []float16.Num{float16.New(-1), float16.New(0), float16.New(127)}, f.Values())

	b, err := array.Of(0.0, 2.5).Cast(dtype.Bool)
	require.NoError(t, err)
	require.Equal(t, []bool{false, true}, b.Values())

	back, err := array.Of(true, false).Cast(dtype.Int64)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 0}, back.Values())

	_, err = d.Cast(dtype.DType("complex64"))
	require.ErrorIs(t, err, array.ErrDType)
}

func TestFloatKernels(t *testing.T) {
	d := array.Of(1.0, nan, 2.5, 3.5)

	filled, err := d.FillNaN(-1)
	require.NoError(t, err)
	require.Equal(t, []float64{1, -1, 2.5, 3.5}, filled.Values())

	rounded, err := d.Round()
	require.NoError(t, err)
	equalValues(t, []float64{1, nan, 2, 4}, rounded.Values())

	masked, err := array.Of[float32](1, 9999, 2, -1).Mask([]float64{9999, -1})
	require.NoError(t, err)
	equalValues(t, []float32{1, float32(nan), 2, float32(nan)}, masked.Values())

	scaled, err := array.Of[float32](1, 2).Affine(0.5, 10)
	require.NoError(t, err)
	require.Equal(t, []float32{10.5, 11}, scaled.Values())

	unscaled, err := array.Of(0.0, 10.0).InverseAffine(2, 1)
	require.NoError(t, err)
	require.Equal(t, []float64{-0.5, 4.5}, unscaled.Values())

	half, err := array.Of(float16.New(1), float16.New(7)).Mask([]float64{7})
	require.NoError(t, err)
	require.Equal(t, dtype.Float16, half.DType())
	require.True(t, half.Values().([]float16.Num)[1].IsNaN())

	tenth, err := array.Of(float16.New(0.1), float16.New(1)).Mask([]float64{0.1})
	require.NoError(t, err)
	require.True(t, tenth.Values().([]float16.Num)[0].IsNaN())
	require.False(t, tenth.Values().([]float16.Num)[1].IsNaN())

	ints := array.Of[int16](1, 2)
	same, err := ints.FillNaN(0)
	require.NoError(t, err)
	require.Same(t, ints, same)

	_, err = ints.Mask([]float64{1})
	require.ErrorIs(t, err, array.ErrDType)

	// Kernels never modify their input.
	equalValues(t, []float64{1, nan, 2.5, 3.5}, d.Values())
}

func TestMapDefers(t *testing.T) {
	var calls atomic.Int32
	src := array.Of[int16](1, 2, 3, 4)
	lazy := array.Map(src, func(d *array.Dense) (*array.Dense, error) {
		calls.Add(1)
		return d.Cast(dtype.Float32)
	}, dtype.Float32)

	require.Equal(t, dtype.Float32, lazy.DType())
	require.Equal(t, []int{4}, lazy.Shape())
	require.Equal(t, int32(0), calls.Load())

	sub, err := lazy.Index(array.Range{Start: 1, Stop: 3})
	require.NoError(t, err)
	require.Equal(t, []int{2}, sub.Shape())
	require.Equal(t, int32(0), calls.Load())

	d, err := sub.Materialize()
	require.NoError(t, err)
	require.Equal(t, []float32{2, 3}, d.Values())
	require.Equal(t, int32(1), calls.Load())

	first, err := lazy.Materialize()
	require.NoError(t, err)
	second, err := lazy.Materialize()
	require.NoError(t, err)
	require.Equal(t, first.Values(), second.Values())
	require.Equal(t, []int16{1, 2, 3, 4}, src.Values())
}

func TestMapChecksResult(t *testing.T) {
	src := array.Of[int16](1, 2)

	wrong := array.Map(src, func(d *array.Dense) (*array.Dense, error) {
		return d.Cast(dtype.Float64)
	}, dtype.Float32)
	_, err := wrong.Materialize()
	require.ErrorIs(t, err, array.ErrDTypeMismatch)

	shrink := array.Map(src, func(d *array.Dense) (*array.Dense, error) {
		return d.Slice(array.Range{Start: 0, Stop: 1})
	}, dtype.Int16)
	_, err = shrink.Materialize()
	require.ErrorIs(t, err, array.ErrShape)

	boom := errors.New("boom")
	failing := array.Map(src, func(d *array.Dense) (*array.Dense, error) {
		return nil, boom
	}, dtype.Int16)
	_, err = failing.Materialize()
	require.ErrorIs(t, err, boom)
}

type mapper struct {
	array.Array
	mapped bool
}

func (m *mapper) MapBlocks(fn array.Func, dt dtype.DType) array.Array {
	m.mapped = true
	return array.Defer(m.Array, fn, dt)
}

func TestMapDispatchesToBlockMapper(t *testing.T) {
	m := &mapper{Array: array.Of[int8](1)}
	out := array.Map(m, func(d *array.Dense) (*array.Dense, error) { return d, nil }, dtype.Int8)
	require.True(t, m.mapped)

	d, err := out.Materialize()
	require.NoError(t, err)
	require.Equal(t, []int8{1}, d.Values())
}

func TestView(t *testing.T) {
	src, _ := array.New([]float64{0, 1, 2, 3, 4, 5}, 3, 2)

	v, err := array.View(src, array.Range{Start: 1, Stop: 3})
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, v.Shape())

	vv, err := v.Index(array.Range{Start: 1, Stop: 2}, array.Range{Start: 0, Stop: 1})
	require.NoError(t, err)
	require.Equal(t, []int{1, 1}, vv.Shape())

	d, err := vv.Materialize()
	require.NoError(t, err)
	require.Equal(t, []float64{4}, d.Values())

	_, err = array.View(src, array.Range{Start: 0, Stop: 4})
	require.ErrorIs(t, err, array.ErrIndex)
}
