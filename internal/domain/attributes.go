package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attributes is an ordered string -> scalar map holding the sparse fields copied
// from a catalog payload. Iteration follows the order in which each key was
// first set; setting an existing key replaces its value in place.
type Attributes struct {
	keys   []string
	values map[string]any
}

// NewAttributes creates an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Set stores a value under key.
func (a *Attributes) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a *Attributes) Get(key string) (any, bool) {
	if a == nil || a.values == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Delete removes key, keeping the order of the remaining keys.
func (a *Attributes) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (a *Attributes) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// MarshalJSON writes the attributes as a JSON object in insertion order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		for i, key := range a.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONField(&buf, key, a.values[key]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, preserving key order. Nested objects
// and arrays are rejected because attributes only hold scalars.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	fields, err := DecodeOrderedObject(data)
	if err != nil {
		return err
	}
	a.keys = nil
	a.values = make(map[string]any, len(fields))
	for _, f := range fields {
		value, ok := f.Scalar()
		if !ok {
			return fmt.Errorf("attribute %q is not a scalar", f.Key)
		}
		a.Set(f.Key, value)
	}
	return nil
}

func writeJSONField(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// RawField is one key/value pair of a JSON object, value left undecoded.
type RawField struct {
	Key   string
	Value json.RawMessage
}

// IsNested reports whether the value is a JSON object or array.
func (f RawField) IsNested() bool {
	trimmed := bytes.TrimSpace(f.Value)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Scalar decodes the value as a JSON scalar. Numbers stay json.Number so ids and
// counts round-trip without float formatting.
func (f RawField) Scalar() (any, bool) {
	if f.IsNested() {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(f.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// DecodeOrderedObject splits a JSON object into its fields in document order.
func DecodeOrderedObject(data []byte) ([]RawField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var fields []RawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		fields = append(fields, RawField{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}
