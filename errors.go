package cfcode

import (
	"errors"
	"fmt"
)

var (
	// ErrMetadataCollision is matched by [*MetadataCollisionError].
	ErrMetadataCollision = errors.New("metadata collision")
	// ErrConflictingFillValue is matched by [*ConflictingFillValueError].
	ErrConflictingFillValue = errors.New("conflicting fill values")
	// ErrInvalidAttribute is returned when a metadata value can't be used by a coder.
	ErrInvalidAttribute = errors.New("invalid attribute")
)

// MetadataCollisionError is returned when a coder moves a key into a map that already holds it.
// It usually means a variable was encoded twice or a caller put an encoding key into attrs.
type MetadataCollisionError struct {
	Key      string
	Variable string
}

func (e *MetadataCollisionError) Error() string {
	return fmt.Sprintf(
		"%s: key %q is already set on variable %q, set it only in encoding",
		ErrMetadataCollision, e.Key, e.Variable,
	)
}

func (e *MetadataCollisionError) Is(target error) bool {
	return target == ErrMetadataCollision
}

// ConflictingFillValueError is returned when _FillValue and missing_value of a variable are
// both set and differ.
type ConflictingFillValueError struct {
	Variable     string
	FillValue    any
	MissingValue any
}

func (e *ConflictingFillValueError) Error() string {
	return fmt.Sprintf(
		"%s: variable %q has _FillValue %v and missing_value %v",
		ErrConflictingFillValue, e.Variable, e.FillValue, e.MissingValue,
	)
}

func (e *ConflictingFillValueError) Is(target error) bool {
	return target == ErrConflictingFillValue
}

func invalidAttribute(name, key string, value any, reason string) error {
	return fmt.Errorf("%w: %s=%v on variable %q %s", ErrInvalidAttribute, key, value, name, reason)
}
