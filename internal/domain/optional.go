package domain

import "encoding/json"

// Optional wraps a request field so that "omitted", "explicitly null"
// and "set to a value" are three distinguishable states. Partial-update
// handlers only touch fields whose key was present in the request body.
type Optional[T any] struct {
	// Set is true when the key appeared in the JSON body at all.
	Set bool
	// Value is nil for an explicit JSON null, otherwise the decoded value.
	Value *T
}

// UnmarshalJSON is only invoked by encoding/json when the key is present,
// which is what makes presence detection work.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON round-trips the value; an unset or null Optional encodes
// as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// NewOptional builds a set Optional holding v. Mostly used by tests.
func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// NullOptional builds a set Optional holding an explicit null.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
