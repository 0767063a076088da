package codec_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/float16"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/codec/gob"
	"github.com/teenjuna/cfcode/codec/json"
	"github.com/teenjuna/cfcode/codec/msgp"
	"github.com/teenjuna/cfcode/dtype"
)

func blocks(t *testing.T) []*array.Dense {
	floats := make([]float64, 1000)
	for i := range floats {
		floats[i] = rand.NormFloat64() * 1e6
	}
	floats[3] = math.NaN()
	floats[7] = math.Inf(1)
	floats[9] = math.Inf(-1)

	grid, err := array.New([]float32{1.5, float32(math.NaN()), -2, 1e-30, 3, 4}, 2, 3)
	require.NoError(t, err)

	empty, err := array.New([]int16{}, 0, 4)
	require.NoError(t, err)

	return []*array.Dense{
		array.Of(floats...),
		grid,
		empty,
		array.Of(true, false, true),
		array.Of[int8](math.MinInt8, -1, 0, math.MaxInt8),
		array.Of[int16](math.MinInt16, math.MaxInt16),
		array.Of[int32](math.MinInt32, math.MaxInt32),
		array.Of[int64](math.MinInt64, math.MaxInt64),
		array.Of[uint8](0, math.MaxUint8),
		array.Of[uint16](0, math.MaxUint16),
		array.Of[uint32](0, math.MaxUint32),
		array.Of[uint64](0, math.MaxUint64),
		array.Of(float16.New(0.5), float16.New(float32(math.NaN())), float16.New(-65504)),
	}
}

func TestCodecs(t *testing.T) {
	codecs := []codec.Codec{json.New(), gob.New(), msgp.New()}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			for range 2 {
				for _, block := range blocks(t) {
					data, err := c.Encode(block)
					require.NoError(t, err)
					require.NotEmpty(t, data)

					decoded, err := c.Derive().Decode(data)
					require.NoError(t, err, "%s", block.DType())

					require.Equal(t, block.DType(), decoded.DType())
					require.Equal(t, block.Shape(), decoded.Shape())
					if diff := cmp.Diff(
						codec.Values(block),
						codec.Values(decoded),
						cmpopts.EquateNaNs(),
						cmpopts.EquateEmpty(),
					); diff != "" {
						t.Fatalf("%s block mismatch (-want +got):\n%s", block.DType(), diff)
					}
				}
			}

			derived := c.Derive()
			require.NotSame(t, c, derived)
			require.Equal(t, c.Name(), derived.Name())
		})
	}
}

func TestEncodeDoesNotAlias(t *testing.T) {
	for _, c := range []codec.Codec{json.New(), gob.New(), msgp.New()} {
		first, err := c.Encode(array.Of[int32](1, 2, 3))
		require.NoError(t, err)
		snapshot := append([]byte(nil), first...)

		_, err = c.Encode(array.Of[int32](4, 5, 6))
		require.NoError(t, err)
		require.Equal(t, snapshot, first, c.Name())
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, c := range []codec.Codec{json.New(), gob.New(), msgp.New()} {
		_, err := c.Decode([]byte("definitely not a block"))
		require.Error(t, err, c.Name())
	}
}

func TestBlock(t *testing.T) {
	slot, err := codec.Slot(dtype.Float16)
	require.NoError(t, err)
	*slot.(*[]uint16) = []uint16{float16.New(2).Uint16()}

	b, err := codec.Block(dtype.Float16, []int{1}, slot)
	require.NoError(t, err)
	require.Equal(t, []float16.Num{float16.New(2)}, b.Values())

	_, err = codec.Block(dtype.Int32, []int{2}, []int16{1, 2})
	require.ErrorIs(t, err, array.ErrDTypeMismatch)

	_, err = codec.Slot(dtype.DType("complex128"))
	require.ErrorIs(t, err, dtype.ErrUnknown)
}
