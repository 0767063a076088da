package json

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/codec"
	"github.com/teenjuna/cfcode/dtype"
)

// Codec stores blocks as JSON objects. JSON has no NaN or infinities, so NaN is written as null
// and infinities as the strings "+Inf" and "-Inf".
type Codec struct {
	buf *bytes.Buffer
}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec {
	return &Codec{
		buf: new(bytes.Buffer),
	}
}

type block struct {
	DType string          `json:"dtype"`
	Shape []int           `json:"shape"`
	Data  json.RawMessage `json:"data"`
}

func (c *Codec) Name() string {
	return "json"
}

func (c *Codec) Encode(b *array.Dense) ([]byte, error) {
	values := codec.Values(b)
	if b.DType().IsFloat() && b.DType() != dtype.Float16 {
		values = floats(values)
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	c.buf.Reset()
	enc := json.NewEncoder(c.buf)

	if err := enc.Encode(block{DType: b.DType().String(), Shape: b.Shape(), Data: data}); err != nil {
		return nil, err
	}

	res := c.buf.Bytes()
	out := make([]byte, len(res))
	copy(out, res)

	return out, nil
}

func (c *Codec) Decode(data []byte) (*array.Dense, error) {
	var b block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}

	dt, err := dtype.Parse(b.DType)
	if err != nil {
		return nil, err
	}

	if dt.IsFloat() && dt != dtype.Float16 {
		var values []any
		if err := json.Unmarshal(b.Data, &values); err != nil {
			return nil, err
		}
		for i, v := range values {
			if values[i], err = special(v); err != nil {
				return nil, err
			}
		}
		return array.FromValues(dt, values, b.Shape...)
	}

	slot, err := codec.Slot(dt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b.Data, slot); err != nil {
		return nil, err
	}

	return codec.Block(dt, b.Shape, slot)
}

func (c *Codec) Derive() codec.Codec {
	return New()
}

// floats replaces the values JSON can't represent.
func floats(values any) []any {
	out := make([]any, 0)
	switch s := values.(type) {
	case []float32:
		out = make([]any, len(s))
		for i, v := range s {
			out[i] = float64(v)
		}
	case []float64:
		out = make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
	}

	for i, v := range out {
		f := v.(float64)
		switch {
		case math.IsNaN(f):
			out[i] = nil
		case math.IsInf(f, 1):
			out[i] = "+Inf"
		case math.IsInf(f, -1):
			out[i] = "-Inf"
		}
	}
	return out
}

func special(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	switch s {
	case "+Inf":
		return math.Inf(1), nil
	case "-Inf":
		return math.Inf(-1), nil
	}
	return nil, fmt.Errorf("unexpected value %q in float block", s)
}
