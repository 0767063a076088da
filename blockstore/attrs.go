package blockstore

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/teenjuna/cfcode"
	"github.com/teenjuna/cfcode/dtype"
)

// attr is a metadata value with its dtype, so that an int16 fill value comes back as an int16.
// Values without a dtype (strings, mixed lists) are stored as plain JSON.
type attr struct {
	DType dtype.DType `json:"dtype,omitempty"`
	Value any         `json:"value"`
}

func encodeAttrs(attrs cfcode.Attrs) (string, error) {
	out := make(map[string]attr, len(attrs))
	for key, value := range attrs {
		dt, ok := dtype.Of(value)
		if !ok {
			out[key] = attr{Value: value}
			continue
		}
		out[key] = attr{DType: dt, Value: finite(value)}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttrs(data string) (cfcode.Attrs, error) {
	var raw map[string]attr
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	attrs := make(cfcode.Attrs, len(raw))
	for key, a := range raw {
		value := numbers(a.Value, a.DType.IsFloat())
		if a.DType == "" {
			attrs[key] = value
			continue
		}

		cast, err := dtype.Cast(a.DType, value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attrs[key] = cast
	}
	return attrs, nil
}

// finite converts floats to float64 and replaces NaN and infinities, which JSON can't
// represent, with their names.
func finite(value any) any {
	if reflect.ValueOf(value).Kind() != reflect.Slice {
		return finiteScalar(value)
	}
	values := dtype.Flatten(value)
	for i, v := range values {
		values[i] = finiteScalar(v)
	}
	return values
}

func finiteScalar(v any) any {
	if dt, ok := dtype.Of(v); !ok || !dt.IsFloat() {
		return v
	}
	f, _ := dtype.AsFloat64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// numbers converts what the JSON decoder produced back into Go scalars. With floats, the names
// written by finite are parsed too.
func numbers(v any, floats bool) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(x), 10, 64); err == nil {
			return u
		}
		f, _ := x.Float64()
		return f
	case string:
		if f, err := strconv.ParseFloat(x, 64); floats && err == nil {
			return f
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = numbers(e, floats)
		}
		return out
	}
	return v
}
