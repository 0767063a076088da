package gob

import (
	"bytes"
	"encoding/gob"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/dtype"
)

type Codec struct {
	buf *bytes.Buffer
}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec {
	return &Codec{
		buf: new(bytes.Buffer),
	}
}

type header struct {
	DType string
	Shape []int
}

func (c *Codec) Name() string {
	return "gob"
}

func (c *Codec) Encode(block *array.Dense) ([]byte, error) {
	c.buf.Reset()
	enc := gob.NewEncoder(c.buf)

	h := header{DType: block.DType().String(), Shape: block.Shape()}
	if err := enc.Encode(&h); err != nil {
		return nil, err
	}
	if err := enc.Encode(codec.Values(block)); err != nil {
		return nil, err
	}

	res := c.buf.Bytes()
	out := make([]byte, len(res))
	copy(out, res)

	return out, nil
}

func (c *Codec) Decode(data []byte) (*array.Dense, error) {
	dec := gob.NewDecoder(bytes.NewReader(data))

	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, err
	}

	dt, err := dtype.Parse(h.DType)
	if err != nil {
		return nil, err
	}
	slot, err := codec.Slot(dt)
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(slot); err != nil {
		return nil, err
	}

	return codec.Block(dt, h.Shape, slot)
}

func (c *Codec) Derive() codec.Codec {
	return New()
}
