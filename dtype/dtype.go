// This package contains the storage [DType] model, the float promotion policies used by the
// coders, and helpers for casting and inspecting scalar attribute values.
package dtype

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknown is returned when a dtype name can't be parsed.
	ErrUnknown = errors.New("unknown dtype")
)

// DType is a storage data type.
type DType string

const (
	Bool    DType = "bool"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Float16 DType = "float16"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// All lists every supported dtype.
var All = []DType{
	Bool,
	Int8, Int16, Int32, Int64,
	Uint8, Uint16, Uint32, Uint64,
	Float16, Float32, Float64,
}

// Kind groups dtypes the same way numpy's dtype.kind does.
type Kind byte

const (
	KindInvalid Kind = 0
	KindBool    Kind = 'b'
	KindInt     Kind = 'i'
	KindUint    Kind = 'u'
	KindFloat   Kind = 'f'
)

func (d DType) Kind() Kind {
	switch d {
	case Bool:
		return KindBool
	case Int8, Int16, Int32, Int64:
		return KindInt
	case Uint8, Uint16, Uint32, Uint64:
		return KindUint
	case Float16, Float32, Float64:
		return KindFloat
	}
	return KindInvalid
}

// Size returns the width of a single element in bytes.
func (d DType) Size() int {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

func (d DType) Valid() bool {
	return d.Kind() != KindInvalid
}

func (d DType) IsInteger() bool {
	k := d.Kind()
	return k == KindInt || k == KindUint
}

func (d DType) IsFloat() bool {
	return d.Kind() == KindFloat
}

func (d DType) String() string {
	return string(d)
}

// Signed returns the signed integer dtype with the given element width.
func Signed(size int) (DType, error) {
	switch size {
	case 1:
		return Int8, nil
	case 2:
		return Int16, nil
	case 4:
		return Int32, nil
	case 8:
		return Int64, nil
	}
	return "", fmt.Errorf("%w: no signed integer of %d bytes", ErrUnknown, size)
}

// Unsigned returns the unsigned integer dtype with the given element width.
func Unsigned(size int) (DType, error) {
	switch size {
	case 1:
		return Uint8, nil
	case 2:
		return Uint16, nil
	case 4:
		return Uint32, nil
	case 8:
		return Uint64, nil
	}
	return "", fmt.Errorf("%w: no unsigned integer of %d bytes", ErrUnknown, size)
}

// Parse parses a dtype name ("int16") or a numpy-style type string ("<i2", "|u1", "f8").
// Byte order markers are accepted and ignored.
func Parse(s string) (DType, error) {
	s = strings.TrimSpace(s)
	if d := DType(s); d.Valid() {
		return d, nil
	}

	code := strings.TrimLeft(s, "<>|=")
	switch code {
	case "b1", "?":
		return Bool, nil
	case "i1":
		return Int8, nil
	case "i2":
		return Int16, nil
	case "i4":
		return Int32, nil
	case "i8":
		return Int64, nil
	case "u1":
		return Uint8, nil
	case "u2":
		return Uint16, nil
	case "u4":
		return Uint32, nil
	case "u8":
		return Uint64, nil
	case "f2":
		return Float16, nil
	case "f4":
		return Float32, nil
	case "f8":
		return Float64, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

// From converts a dtype given as a [DType] or a string into a [DType].
func From(v any) (DType, error) {
	switch d := v.(type) {
	case DType:
		if !d.Valid() {
			return "", fmt.Errorf("%w: %q", ErrUnknown, string(d))
		}
		return d, nil
	case string:
		return Parse(d)
	case fmt.Stringer:
		return Parse(d.String())
	}
	return "", fmt.Errorf("%w: %v (%T)", ErrUnknown, v, v)
}
