// Package record holds the normalized form every parser produces: ordered
// key/value records with scalar values.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value Value
}

// Record is an ordered mapping from key to scalar value. Keys are unique;
// order is kept for display only.
type Record struct {
	fields []Field
}

// Sequence is an ordered list of records.
type Sequence []Record

// Of builds a record from alternating key/value arguments. Values go through
// FromAny. Intended for tests and literals.
func Of(kv ...any) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Set(k, FromAny(kv[i+1]))
	}
	return r
}

// Set stores v under key, replacing an existing value in place.
func (r *Record) Set(key string, v Value) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: v})
}

// SetIfAbsent stores v only when key is not present yet and reports whether
// it did.
func (r *Record) SetIfAbsent(key string, v Value) bool {
	if _, ok := r.Get(key); ok {
		return false
	}
	r.fields = append(r.fields, Field{Key: key, Value: v})
	return true
}

// Get returns the value for key.
func (r Record) Get(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (r Record) Len() int    { return len(r.fields) }
func (r Record) Empty() bool { return len(r.fields) == 0 }

// Keys returns the keys in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Key
	}
	return out
}

// Fields returns a copy of the fields in insertion order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Equal reports whether both records hold the same keys with equal values,
// ignoring order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for _, f := range r.fields {
		ov, ok := o.Get(f.Key)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errNotObject = errors.New("record: expected JSON object")

// UnmarshalJSON decodes a JSON object keeping its key order. Nested objects
// and arrays become their JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}
	var out Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errNotObject
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v, err := valueFromJSON(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// KeyUnion returns every key present in seq in first-seen order.
func (seq Sequence) KeyUnion() []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, r := range seq {
		for _, f := range r.fields {
			if _, ok := seen[f.Key]; ok {
				continue
			}
			seen[f.Key] = struct{}{}
			keys = append(keys, f.Key)
		}
	}
	return keys
}
