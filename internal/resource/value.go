package resource

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing the constrained payload
// value types. Only Null, String, Int, and Bool implement it.
// NO Float - floats are forbidden in payloads (they break canonical
// serialization and deterministic golden traces).
type Value interface {
	value() // Sealed - only types in this package implement it
}

// Null represents an explicit SQL NULL in a payload.
// Distinct from an absent column: Null overwrites, absence leaves the
// column out of the statement entirely.
type Null struct{}

func (Null) value() {}

// String represents a text value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64, never float64.
type Int int64

func (Int) value() {}

// Bool represents a boolean value. Stored as 0/1 in SQLite.
type Bool bool

func (Bool) value() {}

// Values is a payload: column name to Value.
// Use SortedKeys() for deterministic iteration.
type Values map[string]Value

// SQL converts a Value to a driver-compatible argument.
func SQL(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		// Sealed interface - unreachable for well-formed values.
		return nil
	}
}

// FromGo converts a plain Go value (as produced by YAML or JSON
// decoding) into a Value. Floats are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in payloads: %v", val)
	default:
		return nil, fmt.Errorf("unsupported payload type: %T", v)
	}
}

// ValuesFromGo converts a map of plain Go values into a Values payload.
func ValuesFromGo(m map[string]any) (Values, error) {
	vals := make(Values, len(m))
	for k, v := range m {
		val, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		vals[k] = val
	}
	return vals, nil
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code
// units). CRITICAL: Go's sort.Strings uses UTF-8 which produces a
// DIFFERENT order for strings outside the BMP.
func (vals Values) SortedKeys() []string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required
// by RFC 8785 (Canonical JSON). Must use unicode/utf16.Encode for
// correct surrogate handling.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
