// Package cfcode translates array variables between their storage representation (sentinel
// masked, scaled, signedness reinterpreted) and their application representation following the
// CF metadata conventions.
package cfcode

import (
	"maps"
	"slices"

	"github.com/teenjuna/cfcode/array"
)

// Keys of the metadata managed by the coders.
const (
	FillValue    = "_FillValue"
	MissingValue = "missing_value"
	ScaleFactor  = "scale_factor"
	AddOffset    = "add_offset"
	Unsigned     = "_Unsigned"
	// StorageDType is an encoding key naming the dtype the data is going to be stored as.
	StorageDType = "dtype"
)

// Attrs is a metadata map. Values are Go scalars, typed slices of them, []any or nil.
type Attrs map[string]any

// Clone returns a shallow copy of a. A nil map is cloned into an empty one.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return make(Attrs)
	}
	return maps.Clone(a)
}

// Variable is a named-dimension array with user visible attributes and storage-only encoding.
//
// A coder-managed key is either in Attrs or in Encoding, never in both.
type Variable struct {
	Dims     []string
	Data     array.Array
	Attrs    Attrs
	Encoding Attrs
}

// NewVariable creates a Variable. Nil maps are replaced with empty ones.
func NewVariable(dims []string, data array.Array, attrs, encoding Attrs) *Variable {
	if attrs == nil {
		attrs = make(Attrs)
	}
	if encoding == nil {
		encoding = make(Attrs)
	}
	return &Variable{
		Dims:     dims,
		Data:     data,
		Attrs:    attrs,
		Encoding: encoding,
	}
}

// Clone returns a copy of v with its own dims and metadata maps. The data is shared: arrays are
// never modified in place.
func (v *Variable) Clone() *Variable {
	return &Variable{
		Dims:     slices.Clone(v.Dims),
		Data:     v.Data,
		Attrs:    v.Attrs.Clone(),
		Encoding: v.Encoding.Clone(),
	}
}
