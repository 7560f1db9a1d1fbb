package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/go-json-experiment/json/jsontext"
)

// Well-known book source keys
const (
	KeyURL     = "bookSourceUrl"
	KeyName    = "bookSourceName"
	KeyGroup   = "bookSourceGroup"
	KeyComment = "bookSourceComment"
)

// field is a single key/value pair of a BookSource, value kept as raw JSON
type field struct {
	Key   string
	Value jsontext.Value
}

// BookSource is an open book source record. Keys keep their original order
// and values keep their original encoding, so unknown fields survive a
// decode/encode round trip untouched.
type BookSource struct {
	fields []field
}

// NewBookSource creates a record from alternating key/value pairs.
func NewBookSource(kv ...any) (BookSource, error) {
	var b BookSource
	if len(kv)%2 != 0 {
		return b, fmt.Errorf("odd number of key/value arguments: %d", len(kv))
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return b, fmt.Errorf("key at position %d is %T, not string", i, kv[i])
		}
		if err := b.Set(key, kv[i+1]); err != nil {
			return b, err
		}
	}
	return b, nil
}

// URL returns bookSourceUrl
func (b BookSource) URL() string { return b.String(KeyURL) }

// Name returns bookSourceName
func (b BookSource) Name() string { return b.String(KeyName) }

// Group returns bookSourceGroup
func (b BookSource) Group() string { return b.String(KeyGroup) }

// Comment returns bookSourceComment
func (b BookSource) Comment() string { return b.String(KeyComment) }

// String returns the value of key when it holds a JSON string, "" otherwise.
func (b BookSource) String(key string) string {
	raw, ok := b.Get(key)
	if !ok || raw.Kind() != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Get returns the raw JSON value stored under key.
func (b BookSource) Get(key string) (jsontext.Value, bool) {
	for _, f := range b.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set marshals v without HTML escaping and stores it under key. An existing
// key keeps its position.
func (b *BookSource) Set(key string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	b.setRaw(key, jsontext.Value(bytes.TrimRight(buf.Bytes(), "\n")))
	return nil
}

// setRaw copies the field slice first, copies of a BookSource share it
func (b *BookSource) setRaw(key string, raw jsontext.Value) {
	b.fields = slices.Clone(b.fields)
	for i := range b.fields {
		if b.fields[i].Key == key {
			b.fields[i].Value = raw
			return
		}
	}
	b.fields = append(b.fields, field{Key: key, Value: raw})
}

// Keys returns the keys in document order.
func (b BookSource) Keys() []string {
	keys := make([]string, len(b.fields))
	for i, f := range b.fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of fields.
func (b BookSource) Len() int { return len(b.fields) }

// MarshalJSON writes the fields back in their original order.
func (b BookSource) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}
	for _, f := range b.fields {
		if err := enc.WriteToken(jsontext.String(f.Key)); err != nil {
			return nil, err
		}
		if err := enc.WriteValue(f.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a JSON object keeping key order and raw values.
func (b *BookSource) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data), jsontext.AllowDuplicateNames(true))
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("book source must be a JSON object, got %v", tok.Kind())
	}

	var fields []field
	pos := make(map[string]int)
	for dec.PeekKind() != '}' {
		name, err := dec.ReadToken()
		if err != nil {
			return err
		}
		// the token is only valid until the next decoder call
		key := name.String()
		raw, err := dec.ReadValue()
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		// ReadValue returns a view into the decoder buffer
		value := jsontext.Value(bytes.Clone(raw))
		if i, ok := pos[key]; ok {
			fields[i].Value = value
			continue
		}
		pos[key] = len(fields)
		fields = append(fields, field{Key: key, Value: value})
	}
	if _, err := dec.ReadToken(); err != nil {
		return err
	}
	b.fields = fields
	return nil
}
