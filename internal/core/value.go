package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a captured field value: either a scalar or an ordered list.
// Multi-choice fields submit lists; everything else submits scalars.
type Value struct {
	scalar string
	list   []string
	isList bool
}

// Scalar returns a scalar value.
func Scalar(s string) Value {
	return Value{scalar: s}
}

// List returns a list value. The slice is copied.
func List(items ...string) Value {
	l := make([]string, len(items))
	copy(l, items)
	return Value{list: l, isList: true}
}

// IsList reports whether the value is a list.
func (v Value) IsList() bool {
	return v.isList
}

// String returns the scalar, or the list items joined with DisplaySeparator.
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.list, DisplaySeparator)
	}
	return v.scalar
}

// Items returns the list items, or the scalar as a one-element slice.
func (v Value) Items() []string {
	if v.isList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	return []string{v.scalar}
}

// Len returns the number of list items, or 1 for a scalar.
func (v Value) Len() int {
	if v.isList {
		return len(v.list)
	}
	return 1
}

// IsEmpty reports whether the value carries nothing: an empty scalar or an empty list.
func (v Value) IsEmpty() bool {
	if v.isList {
		return len(v.list) == 0
	}
	return v.scalar == ""
}

// Map applies fn to the scalar or to each list item, keeping the shape.
// The first error aborts the mapping.
func (v Value) Map(fn func(string) (string, error)) (Value, error) {
	if !v.isList {
		s, err := fn(v.scalar)
		if err != nil {
			return Value{}, err
		}
		return Scalar(s), nil
	}
	out := make([]string, len(v.list))
	for i, item := range v.list {
		s, err := fn(item)
		if err != nil {
			return Value{}, err
		}
		out[i] = s
	}
	return Value{list: out, isList: true}, nil
}

// Equal reports whether two values have the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.scalar == o.scalar
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes scalars as JSON strings and lists as arrays of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts strings, numbers, booleans, null and arrays of those.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode value list: %w", err)
		}
		items := make([]string, len(raw))
		for i, r := range raw {
			s, err := jsonScalar(r)
			if err != nil {
				return err
			}
			items[i] = s
		}
		*v = Value{list: items, isList: true}
		return nil
	}
	s, err := jsonScalar(data)
	if err != nil {
		return err
	}
	*v = Scalar(s)
	return nil
}

func jsonScalar(data json.RawMessage) (string, error) {
	var anyVal any
	if err := json.Unmarshal(data, &anyVal); err != nil {
		return "", fmt.Errorf("decode value: %w", err)
	}
	switch x := anyVal.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("decode value: unsupported JSON type %T", anyVal)
	}
}
