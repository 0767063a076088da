// This package contains the main [Codec] interface and several implementations inside subpackages.
package codec

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow/go/v18/arrow/float16"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/dtype"
)

// Codec encodes and decodes dense array blocks for storage.
//
// Implementations are not considered thread-safe and each instance is used by a single goroutine.
type Codec interface {
	// Name returns the name the codec is registered under in storage.
	Name() string
	// Encode serializes a block, including its dtype and shape.
	Encode(block *array.Dense) ([]byte, error)
	// Decode deserializes a block produced by Encode.
	Decode(data []byte) (*array.Dense, error)
	// Derive returns a new Codec instance with the same settings.
	//
	// The returned codec maintains its own internal state independent of the original.
	Derive() Codec
}

// Values returns the elements of block as a typed slice that every codec can serialize: float16
// elements are replaced with their bits.
func Values(block *array.Dense) any {
	if s, ok := block.Values().([]float16.Num); ok {
		bits := make([]uint16, len(s))
		for i, v := range s {
			bits[i] = v.Uint16()
		}
		return bits
	}
	return block.Values()
}

// Slot returns a pointer to an empty slice able to hold [Values] of a block of dtype dt.
func Slot(dt dtype.DType) (any, error) {
	switch dt {
	case dtype.Bool:
		return new([]bool), nil
	case dtype.Int8:
		return new([]int8), nil
	case dtype.Int16:
		return new([]int16), nil
	case dtype.Int32:
		return new([]int32), nil
	case dtype.Int64:
		return new([]int64), nil
	case dtype.Uint8:
		return new([]uint8), nil
	case dtype.Uint16, dtype.Float16:
		return new([]uint16), nil
	case dtype.Uint32:
		return new([]uint32), nil
	case dtype.Uint64:
		return new([]uint64), nil
	case dtype.Float32:
		return new([]float32), nil
	case dtype.Float64:
		return new([]float64), nil
	}
	return nil, fmt.Errorf("%w: %q", dtype.ErrUnknown, string(dt))
}

// Block rebuilds a block from values filled into a [Slot] (or the slice itself).
func Block(dt dtype.DType, shape []int, values any) (*array.Dense, error) {
	if v := reflect.ValueOf(values); v.Kind() == reflect.Pointer {
		values = v.Elem().Interface()
	}
	if dt == dtype.Float16 {
		bits, ok := values.([]uint16)
		if !ok {
			return nil, fmt.Errorf("%w: float16 block holds %T", array.ErrDType, values)
		}
		s := make([]float16.Num, len(bits))
		for i, b := range bits {
			s[i] = float16.FromBits(b)
		}
		values = s
	}

	block, err := array.New(values, shape...)
	if err != nil {
		return nil, err
	}
	if block.DType() != dt {
		return nil, fmt.Errorf("%w: header says %s, data is %s", array.ErrDTypeMismatch, dt, block.DType())
	}
	return block, nil
}
