// Package report holds comparison results and renders them to console, JSON or CSV.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Value is one difference entry. It is exactly one of Message, Lines or *Record.
type Value interface {
	isValue()
	// Flatten renders the value as display lines, nested entries indented.
	Flatten() []string
}

// Message is a single diff message.
type Message string

func (Message) isValue() {}

func (m Message) Flatten() []string { return []string{string(m)} }

// Lines is an ordered list of diff lines.
type Lines []string

func (Lines) isValue() {}

func (l Lines) Flatten() []string { return append([]string(nil), l...) }

// Record is an ordered mapping from facet or column name to a nested value.
type Record struct {
	m *orderedmap.OrderedMap[string, Value]
}

func (*Record) isValue() {}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{m: orderedmap.NewOrderedMap[string, Value]()}
}

// Set stores v under key, keeping the original position if the key exists.
func (r *Record) Set(key string, v Value) {
	r.m.Set(key, v)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	return r.m.Get(key)
}

// Len returns the number of entries.
func (r *Record) Len() int {
	if r == nil || r.m == nil {
		return 0
	}
	return r.m.Len()
}

// Keys returns keys in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	if r.Len() == 0 {
		return keys
	}
	for el := r.m.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Each calls fn for every entry in insertion order.
func (r *Record) Each(fn func(key string, v Value)) {
	if r.Len() == 0 {
		return
	}
	for el := r.m.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

func (r *Record) Flatten() []string {
	var out []string
	r.Each(func(key string, v Value) {
		switch val := v.(type) {
		case Message:
			out = append(out, fmt.Sprintf("%s: %s", key, string(val)))
		default:
			out = append(out, key+":")
			for _, line := range v.Flatten() {
				out = append(out, "  "+line)
			}
		}
	})
	return out
}

// MarshalJSON writes entries as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	r.Each(func(key string, v Value) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var kb, vb []byte
		if kb, err = marshalNoEscape(key); err != nil {
			return
		}
		if vb, err = marshalNoEscape(v); err != nil {
			return
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// String is the single-line display form used in log fields.
func String(v Value) string {
	return strings.Join(v.Flatten(), "; ")
}
