package cfcode

// Move transfers key from src to dst and returns its value.
//
// A missing key is not an error: Move returns nil and changes nothing. A nil value is removed
// from src without being inserted into dst. If dst already holds key, Move fails with a
// [*MetadataCollisionError] and leaves both maps untouched. The name of the variable is only used
// in the error.
func Move(key string, src, dst Attrs, name string) (any, error) {
	value, ok := src[key]
	if !ok {
		return nil, nil
	}

	if value != nil {
		if _, exists := dst[key]; exists {
			return nil, &MetadataCollisionError{Key: key, Variable: name}
		}
		dst[key] = value
	}
	delete(src, key)

	return value, nil
}
