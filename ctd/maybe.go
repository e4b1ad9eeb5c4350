package ctd

import (
	"encoding/json"
	"math"
)

// Maybe holds a value recovered from the instrument. The zero Maybe is
// unset, which keeps "no value" distinct from a real zero reading.
type Maybe[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Maybe[T] {
	return Maybe[T]{Value: v, Valid: true}
}

func (m Maybe[T]) Get() (T, bool) {
	return m.Value, m.Valid
}

// Or returns the value, or def when unset.
func (m Maybe[T]) Or(def T) T {
	if !m.Valid {
		return def
	}
	return m.Value
}

// Float returns the value of m, or NaN when unset.
func Float(m Maybe[float64]) float64 {
	return m.Or(math.NaN())
}

// MarshalJSON encodes an unset value as null.
func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Maybe[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}
