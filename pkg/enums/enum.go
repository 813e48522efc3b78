package enums

import (
	"fmt"
	"slices"
)

// parse matches raw exactly against valid; kind names the enum in the error.
func parse[T ~string](kind, raw string, valid []T) (T, error) {
	if v := T(raw); slices.Contains(valid, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
