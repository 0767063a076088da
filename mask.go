package cfcode

import (
	"fmt"
	"slices"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/diag"
	"github.com/teenjuna/cfcode/dtype"
)

// MaskCoder replaces fill values with NaN on decode, and NaN with the fill value on encode.
//
// Both _FillValue and missing_value are understood. Decoded data is promoted to a float dtype
// (see [dtype.MaybePromote]) so that it can hold NaN.
type MaskCoder struct{}

func (MaskCoder) Kind() CoderKind {
	return Mask
}

func (MaskCoder) coder() {}

func (MaskCoder) Encode(v *Variable, name string, _ diag.Sink) (*Variable, error) {
	// A nil value disables the key and stays in encoding.
	fv, mv := v.Encoding[FillValue], v.Encoding[MissingValue]
	hasFill, hasMissing := fv != nil, mv != nil
	if !hasFill && !hasMissing {
		return v, nil
	}

	if hasFill && hasMissing && !allClose(fv, mv) {
		return nil, &ConflictingFillValueError{Variable: name, FillValue: fv, MissingValue: mv}
	}

	out := v.Clone()
	dt, err := storageDType(out, name)
	if err != nil {
		return nil, err
	}

	if hasFill {
		fill, err := encodeSentinel(out, FillValue, dt, name)
		if err != nil {
			return nil, err
		}
		out.Data = fillNaN(out.Data, first(fill))
	}

	if hasMissing {
		missing, err := encodeSentinel(out, MissingValue, dt, name)
		if err != nil {
			return nil, err
		}
		if !hasFill {
			out.Data = fillNaN(out.Data, first(missing))
		}
	}

	return out, nil
}

func (MaskCoder) Decode(v *Variable, name string, sink diag.Sink) (*Variable, error) {
	_, hasFill := v.Attrs[FillValue]
	_, hasMissing := v.Attrs[MissingValue]
	if !hasFill && !hasMissing {
		return v, nil
	}

	out := v.Clone()

	var values []float64
	for _, key := range []string{MissingValue, FillValue} {
		value, err := Move(key, out.Attrs, out.Encoding, name)
		if err != nil {
			return nil, err
		}
		values = appendSentinels(values, value)
	}

	values = unique(values)
	if len(values) == 0 {
		return out, nil
	}
	if len(values) > 1 {
		diag.Report(sink, name, diag.MultipleFillValues,
			"variable %q has multiple fill values %v, decoding all values to NaN", name, values)
	}

	dt, _ := dtype.MaybePromote(out.Data.DType())
	out.Data = array.Map(out.Data, func(d *array.Dense) (*array.Dense, error) {
		promoted, err := d.Cast(dt)
		if err != nil {
			return nil, err
		}
		return promoted.Mask(values)
	}, dt)

	return out, nil
}

// storageDType returns the dtype the variable is going to be stored as.
func storageDType(v *Variable, name string) (dtype.DType, error) {
	hint, ok := v.Encoding[StorageDType]
	if !ok || hint == nil {
		return v.Data.DType(), nil
	}
	dt, err := dtype.From(hint)
	if err != nil {
		return "", fmt.Errorf("storage dtype of variable %q: %w", name, err)
	}
	return dt, nil
}

// encodeSentinel casts a fill value attribute to dt and moves it from encoding to attrs.
func encodeSentinel(v *Variable, key string, dt dtype.DType, name string) (any, error) {
	value, err := dtype.Cast(dt, v.Encoding[key])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", invalidAttribute(name, key, v.Encoding[key], "can't be stored as "+dt.String()), err)
	}
	v.Encoding[key] = value
	return Move(key, v.Encoding, v.Attrs, name)
}

// fillNaN lazily replaces NaN in float data with value. Integer data has no NaN to replace.
func fillNaN(data array.Array, value any) array.Array {
	if dtype.IsNull(value) || !data.DType().IsFloat() {
		return data
	}
	f, ok := dtype.AsFloat64(value)
	if !ok {
		return data
	}
	return array.Map(data, func(d *array.Dense) (*array.Dense, error) {
		return d.FillNaN(f)
	}, data.DType())
}

func unique(values []float64) []float64 {
	slices.Sort(values)
	return slices.Compact(values)
}
