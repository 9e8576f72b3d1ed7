package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Nullable is an optional configuration value. The zero value is null.
type Nullable[T any] struct {
	value T
	exist bool
}

// Null returns an unset value.
func Null[T any]() Nullable[T] {
	return Nullable[T]{exist: false}
}

// NullableValue returns a value set to v.
func NullableValue[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, exist: true}
}

// Value returns the value and whether it was set.
func (v Nullable[T]) Value() (T, bool) {
	return v.value, v.exist
}

// Or returns the value if it is set, or def otherwise.
func (v Nullable[T]) Or(def T) T {
	if v.exist {
		return v.value
	}
	return def
}

type nullable interface{ setNull() }

func (v *Nullable[T]) setNull() { *v = Nullable[T]{} }

func (v Nullable[T]) MarshalJSON() ([]byte, error) {
	if !v.exist {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

func (v Nullable[T]) MarshalYAML() (any, error) {
	if !v.exist {
		return nil, nil
	}
	return v.value, nil
}

func (v *Nullable[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		v.exist = false
		return nil
	} else if err := json.Unmarshal(b, &v.value); err != nil {
		v.exist = false
		return err
	} else {
		v.exist = true
		return nil
	}
}

func (v *Nullable[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && (node.Value == "" || node.Value == "~" || node.Value == "null") {
		v.exist = false
		return nil
	} else if err := node.Decode(&v.value); err != nil {
		v.exist = false
		return err
	} else {
		v.exist = true
		return nil
	}
}
