// Package message implements the VICI structured document and its binary codec.
package message

import (
	"fmt"
	"sort"
)

// Message is an insertion-ordered document. Values are string (key/value),
// []string (list) or *Message (section).
type Message struct {
	keys   []string
	values map[string]any
}

func New() *Message {
	return &Message{values: make(map[string]any)}
}

// Set stores v under key, keeping the original position when key already exists.
// Accepted value kinds: string, []byte, []string, *Message, map[string]any and
// anything fmt can print (rendered with %v).
func (m *Message) Set(key string, v any) *Message {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = normalize(v)
	return m
}

func normalize(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case *Message:
		return val
	case map[string]any:
		return FromMap(val)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (m *Message) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Message) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *Message) GetList(key string) ([]string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	l, ok := v.([]string)
	return l, ok
}

func (m *Message) GetSection(key string) (*Message, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Message)
	return s, ok
}

// Keys returns keys in insertion order.
func (m *Message) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// ToMap converts the document into plain maps for rendering.
func (m *Message) ToMap() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		switch v := m.values[k].(type) {
		case *Message:
			out[k] = v.ToMap()
		case []string:
			l := make([]string, len(v))
			copy(l, v)
			out[k] = l
		default:
			out[k] = v
		}
	}
	return out
}

// FromMap builds a document from plain maps. Keys are sorted since map order is random.
// []any lists are rendered element-wise.
func FromMap(in map[string]any) *Message {
	m := New()
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := in[k].(type) {
		case []any:
			l := make([]string, 0, len(v))
			for _, item := range v {
				l = append(l, fmt.Sprintf("%v", normalize(item)))
			}
			m.Set(k, l)
		default:
			m.Set(k, v)
		}
	}
	return m
}
