package msgp

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/dtype"
)

// Codec stores blocks as MessagePack: the dtype string, the shape array and the element array.
type Codec struct {
	buf []byte
}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec {
	buf := make([]byte, 0)
	return &Codec{
		buf: buf,
	}
}

func (c *Codec) Name() string {
	return "msgp"
}

func (c *Codec) Encode(block *array.Dense) ([]byte, error) {
	b := c.buf[:0]
	b = msgp.AppendString(b, block.DType().String())
	b = msgp.AppendArrayHeader(b, uint32(len(block.Shape())))
	for _, n := range block.Shape() {
		b = msgp.AppendInt(b, n)
	}

	switch s := codec.Values(block).(type) {
	case []bool:
		b = appendAll(b, s, msgp.AppendBool)
	case []int8:
		b = appendAll(b, s, msgp.AppendInt8)
	case []int16:
		b = appendAll(b, s, msgp.AppendInt16)
	case []int32:
		b = appendAll(b, s, msgp.AppendInt32)
	case []int64:
		b = appendAll(b, s, msgp.AppendInt64)
	case []uint8:
		b = appendAll(b, s, msgp.AppendUint8)
	case []uint16:
		b = appendAll(b, s, msgp.AppendUint16)
	case []uint32:
		b = appendAll(b, s, msgp.AppendUint32)
	case []uint64:
		b = appendAll(b, s, msgp.AppendUint64)
	case []float32:
		b = appendAll(b, s, msgp.AppendFloat32)
	case []float64:
		b = appendAll(b, s, msgp.AppendFloat64)
	default:
		return nil, fmt.Errorf("%w: %s", array.ErrDType, block.DType())
	}
	c.buf = b

	out := make([]byte, len(b))
	copy(out, b)

	return out, nil
}

func (c *Codec) Decode(data []byte) (*array.Dense, error) {
	name, data, err := msgp.ReadStringBytes(data)
	if err != nil {
		return nil, fmt.Errorf("read dtype: %w", err)
	}
	dt, err := dtype.Parse(name)
	if err != nil {
		return nil, err
	}

	ndim, data, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return nil, fmt.Errorf("read shape: %w", err)
	}
	shape := make([]int, ndim)
	for i := range shape {
		if shape[i], data, err = msgp.ReadIntBytes(data); err != nil {
			return nil, fmt.Errorf("read shape: %w", err)
		}
	}

	var values any
	switch dt {
	case dtype.Bool:
		values, err = readAll(data, msgp.ReadBoolBytes)
	case dtype.Int8:
		values, err = readAll(data, msgp.ReadInt8Bytes)
	case dtype.Int16:
		values, err = readAll(data, msgp.ReadInt16Bytes)
	case dtype.Int32:
		values, err = readAll(data, msgp.ReadInt32Bytes)
	case dtype.Int64:
		values, err = readAll(data, msgp.ReadInt64Bytes)
	case dtype.Uint8:
		values, err = readAll(data, msgp.ReadUint8Bytes)
	case dtype.Uint16, dtype.Float16:
		values, err = readAll(data, msgp.ReadUint16Bytes)
	case dtype.Uint32:
		values, err = readAll(data, msgp.ReadUint32Bytes)
	case dtype.Uint64:
		values, err = readAll(data, msgp.ReadUint64Bytes)
	case dtype.Float32:
		values, err = readAll(data, msgp.ReadFloat32Bytes)
	case dtype.Float64:
		values, err = readAll(data, msgp.ReadFloat64Bytes)
	default:
		err = fmt.Errorf("%w: %s", array.ErrDType, dt)
	}
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	return codec.Block(dt, shape, values)
}

func (c *Codec) Derive() codec.Codec {
	return New()
}

func appendAll[T any](b []byte, s []T, appendFunc func([]byte, T) []byte) []byte {
	b = msgp.AppendArrayHeader(b, uint32(len(s)))
	for _, v := range s {
		b = appendFunc(b, v)
	}
	return b
}

func readAll[T any](data []byte, readFunc func([]byte) (T, []byte, error)) ([]T, error) {
	n, data, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		if out[i], data, err = readFunc(data); err != nil {
			return nil, err
		}
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(data))
	}
	return out, nil
}
