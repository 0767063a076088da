package cfcode

import (
	"fmt"

	"github.com/teenjuna/cfcode/diag"
)

// Coder translates a single aspect of a variable between its storage and application forms.
//
// Encode and Decode never modify their argument. When the variable carries none of the metadata
// the coder understands, they return the argument itself. Diagnostics are pushed to sink, a nil
// sink discards them. The name of the variable is only used in errors and diagnostics.
//
// The set of coders is closed: [MaskCoder], [ScaleOffsetCoder] and [UnsignedIntegerCoder].
type Coder interface {
	Encode(v *Variable, name string, sink diag.Sink) (*Variable, error)
	Decode(v *Variable, name string, sink diag.Sink) (*Variable, error)
	Kind() CoderKind

	coder()
}

var (
	_ Coder = MaskCoder{}
	_ Coder = ScaleOffsetCoder{}
	_ Coder = UnsignedIntegerCoder{}
)

// CoderKind identifies a [Coder].
type CoderKind int

const (
	Mask CoderKind = iota + 1
	ScaleOffset
	UnsignedInteger
)

func (k CoderKind) String() string {
	switch k {
	case Mask:
		return "mask"
	case ScaleOffset:
		return "scale_offset"
	case UnsignedInteger:
		return "unsigned"
	}
	return fmt.Sprintf("CoderKind(%d)", int(k))
}

// ParseCoderKind parses the string form of a [CoderKind].
func ParseCoderKind(s string) (CoderKind, error) {
	for _, k := range []CoderKind{Mask, ScaleOffset, UnsignedInteger} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown coder %q", s)
}

// NewCoder returns the coder of kind k.
func NewCoder(k CoderKind) (Coder, error) {
	switch k {
	case Mask:
		return MaskCoder{}, nil
	case ScaleOffset:
		return ScaleOffsetCoder{}, nil
	case UnsignedInteger:
		return UnsignedIntegerCoder{}, nil
	}
	return nil, fmt.Errorf("unknown coder %v", k)
}

// DefaultCoders returns the coders in the order they decode a variable read from storage.
func DefaultCoders() []Coder {
	return []Coder{
		UnsignedIntegerCoder{},
		MaskCoder{},
		ScaleOffsetCoder{},
	}
}
