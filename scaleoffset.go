package cfcode

import (
	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/diag"
	"github.com/teenjuna/cfcode/dtype"
)

// ScaleOffsetCoder applies scale_factor and add_offset: decoded = raw*scale_factor + add_offset.
//
// The arithmetic happens in the float dtype chosen by [dtype.ChooseFloat].
type ScaleOffsetCoder struct{}

func (ScaleOffsetCoder) Kind() CoderKind {
	return ScaleOffset
}

func (ScaleOffsetCoder) coder() {}

func (ScaleOffsetCoder) Encode(v *Variable, name string, _ diag.Sink) (*Variable, error) {
	_, hasScale := v.Encoding[ScaleFactor]
	_, hasOffset := v.Encoding[AddOffset]
	if !hasScale && !hasOffset {
		return v, nil
	}

	out := v.Clone()
	dt := dtype.ChooseFloat(out.Data.DType(), hasOffset)

	scale, offset, err := moveScaleOffset(out.Encoding, out.Attrs, name, AddOffset, ScaleFactor)
	if err != nil {
		return nil, err
	}

	out.Data = array.Map(out.Data, func(d *array.Dense) (*array.Dense, error) {
		converted, err := d.Cast(dt)
		if err != nil {
			return nil, err
		}
		return converted.InverseAffine(scale, offset)
	}, dt)

	return out, nil
}

func (ScaleOffsetCoder) Decode(v *Variable, name string, _ diag.Sink) (*Variable, error) {
	_, hasScale := v.Attrs[ScaleFactor]
	_, hasOffset := v.Attrs[AddOffset]
	if !hasScale && !hasOffset {
		return v, nil
	}

	out := v.Clone()

	scale, offset, err := moveScaleOffset(out.Attrs, out.Encoding, name, ScaleFactor, AddOffset)
	if err != nil {
		return nil, err
	}

	_, hasOffset = out.Encoding[AddOffset]
	dt := dtype.ChooseFloat(out.Data.DType(), hasOffset)

	out.Data = array.Map(out.Data, func(d *array.Dense) (*array.Dense, error) {
		converted, err := d.Cast(dt)
		if err != nil {
			return nil, err
		}
		return converted.Affine(scale, offset)
	}, dt)

	return out, nil
}

// moveScaleOffset moves both keys from src to dst in the given order and returns their numeric
// values. A missing scale is 1 and a missing offset is 0.
func moveScaleOffset(src, dst Attrs, name string, keys ...string) (scale, offset float64, err error) {
	scale, offset = 1, 0
	for _, key := range keys {
		value, err := Move(key, src, dst, name)
		if err != nil {
			return 0, 0, err
		}
		if value == nil {
			continue
		}

		f, err := scalarFloat(name, key, value)
		if err != nil {
			return 0, 0, err
		}
		if key == ScaleFactor {
			scale = f
		} else {
			offset = f
		}
	}
	return scale, offset, nil
}
