package cfcode

import (
	"fmt"

	"github.com/teenjuna/cfcode/array"
	"github.com/teenjuna/cfcode/diag"
	"github.com/teenjuna/cfcode/dtype"
)

// UnsignedIntegerCoder handles the _Unsigned convention used to store unsigned integers in
// formats that only have signed ones, and the other way around.
//
// Values are converted between integers of the same width, so out of range values wrap around.
type UnsignedIntegerCoder struct{}

func (UnsignedIntegerCoder) Kind() CoderKind {
	return UnsignedInteger
}

func (UnsignedIntegerCoder) coder() {}

// Encode converts data to the signed integer of the same width when encoding holds
// _Unsigned="true". Float data is rounded half to even first.
func (UnsignedIntegerCoder) Encode(v *Variable, name string, _ diag.Sink) (*Variable, error) {
	if flag, _ := v.Encoding[Unsigned].(string); flag != "true" {
		return v, nil
	}

	out := v.Clone()
	if _, err := Move(Unsigned, out.Encoding, out.Attrs, name); err != nil {
		return nil, err
	}

	signed, err := dtype.Signed(out.Data.DType().Size())
	if err != nil {
		return nil, fmt.Errorf("encode %s of variable %q: %w", Unsigned, name, err)
	}
	if err := recastFillValue(out, signed, name); err != nil {
		return nil, err
	}

	out.Data = array.Map(out.Data, func(d *array.Dense) (*array.Dense, error) {
		rounded, err := d.Round()
		if err != nil {
			return nil, err
		}
		return rounded.Cast(signed)
	}, signed)

	return out, nil
}

// Decode converts signed data to unsigned for _Unsigned="true" and unsigned data to signed for
// _Unsigned="false". Any other combination is reported and the data is left as is.
func (UnsignedIntegerCoder) Decode(v *Variable, name string, sink diag.Sink) (*Variable, error) {
	if _, ok := v.Attrs[Unsigned]; !ok {
		return v, nil
	}

	out := v.Clone()
	flag, err := Move(Unsigned, out.Attrs, out.Encoding, name)
	if err != nil {
		return nil, err
	}

	var (
		dt     = out.Data.DType()
		target dtype.DType
	)
	switch {
	case dt.Kind() == dtype.KindInt && flag == "true":
		target, err = dtype.Unsigned(dt.Size())
	case dt.Kind() == dtype.KindUint && flag == "false":
		target, err = dtype.Signed(dt.Size())
	case !dt.IsInteger():
		diag.Report(sink, name, diag.UnsignedIgnored,
			"variable %q has %s attribute but is not of integer type, ignoring attribute", name, Unsigned)
		return out, nil
	default:
		diag.Report(sink, name, diag.UnsignedIgnored,
			"variable %q of type %s has %s=%v, ignoring attribute", name, dt, Unsigned, flag)
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s of variable %q: %w", Unsigned, name, err)
	}

	if err := recastFillValue(out, target, name); err != nil {
		return nil, err
	}

	out.Data = array.Map(out.Data, func(d *array.Dense) (*array.Dense, error) {
		return d.Cast(target)
	}, target)

	return out, nil
}

// recastFillValue converts the _FillValue attribute, if any, to dt.
func recastFillValue(v *Variable, dt dtype.DType, name string) error {
	fv, ok := v.Attrs[FillValue]
	if !ok {
		return nil
	}
	cast, err := dtype.Cast(dt, fv)
	if err != nil {
		return fmt.Errorf("%w: %w", invalidAttribute(name, FillValue, fv, "can't be converted to "+dt.String()), err)
	}
	v.Attrs[FillValue] = cast
	return nil
}
