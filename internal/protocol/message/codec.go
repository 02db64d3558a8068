package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/vicictl/internal/protocol"
)

// Element type IDs from the VICI message encoding.
const (
	ElementSectionStart uint8 = 1
	ElementSectionEnd   uint8 = 2
	ElementKeyValue     uint8 = 3
	ElementListStart    uint8 = 4
	ElementListItem     uint8 = 5
	ElementListEnd      uint8 = 6
)

// MaxDepth bounds section nesting on decode.
const MaxDepth = 64

var (
	ErrShortElement     = errors.New("message: short element")
	ErrUnbalanced       = errors.New("message: unbalanced section")
	ErrUnexpectedItem   = errors.New("message: list item outside list")
	ErrUnterminatedList = errors.New("message: unterminated list")
	ErrTooDeep          = errors.New("message: nesting too deep")
)

// Codec serializes documents with the VICI element encoding.
type Codec struct{}

func (Codec) Serialize(m *Message) ([]byte, error) {
	return Encode(m)
}

func (Codec) Deserialize(b []byte) (*Message, error) {
	return Decode(b)
}

// Encode serializes m. A nil message encodes to no bytes.
func Encode(m *Message) ([]byte, error) {
	out := make([]byte, 0, 64)
	return appendMessage(out, m)
}

func appendMessage(out []byte, m *Message) ([]byte, error) {
	if m == nil {
		return out, nil
	}
	var err error
	for _, k := range m.keys {
		switch v := m.values[k].(type) {
		case *Message:
			if out, err = appendNamed(out, ElementSectionStart, k); err != nil {
				return nil, err
			}
			if out, err = appendMessage(out, v); err != nil {
				return nil, err
			}
			out = append(out, ElementSectionEnd)
		case []string:
			if out, err = appendNamed(out, ElementListStart, k); err != nil {
				return nil, err
			}
			for _, item := range v {
				out = append(out, ElementListItem)
				if out, err = appendValue(out, item); err != nil {
					return nil, err
				}
			}
			out = append(out, ElementListEnd)
		case string:
			if out, err = appendNamed(out, ElementKeyValue, k); err != nil {
				return nil, err
			}
			if out, err = appendValue(out, v); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: key %q holds %T", protocol.ErrUnknownType, k, v)
		}
	}
	return out, nil
}

func appendNamed(out []byte, element uint8, name string) ([]byte, error) {
	if len(name) > protocol.MaxNameLen {
		return nil, fmt.Errorf("%w: %q", protocol.ErrNameTooLong, name)
	}
	out = append(out, element, byte(len(name)))
	return append(out, name...), nil
}

func appendValue(out []byte, value string) ([]byte, error) {
	if len(value) > protocol.MaxValueLen {
		return nil, fmt.Errorf("%w: %d bytes", protocol.ErrValueTooLong, len(value))
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(value)))
	out = append(out, l[:]...)
	return append(out, value...), nil
}

// Decode parses an element stream into a document. Empty input is an empty document.
func Decode(b []byte) (*Message, error) {
	d := decoder{buf: b}
	root := New()
	stack := []*Message{root}
	var (
		listKey string
		list    []string
		inList  bool
	)
	for d.pos < len(d.buf) {
		element := d.buf[d.pos]
		d.pos++
		cur := stack[len(stack)-1]
		if inList && element != ElementListItem && element != ElementListEnd {
			return nil, malformed(ErrUnterminatedList, listKey)
		}
		switch element {
		case ElementSectionStart:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			if len(stack) > MaxDepth {
				return nil, malformed(ErrTooDeep, name)
			}
			sec := New()
			cur.Set(name, sec)
			stack = append(stack, sec)
		case ElementSectionEnd:
			if len(stack) == 1 {
				return nil, malformed(ErrUnbalanced, "extra section end")
			}
			stack = stack[:len(stack)-1]
		case ElementKeyValue:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			value, err := d.value()
			if err != nil {
				return nil, err
			}
			cur.Set(name, value)
		case ElementListStart:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			listKey, list, inList = name, []string{}, true
		case ElementListItem:
			if !inList {
				return nil, malformed(ErrUnexpectedItem, "")
			}
			value, err := d.value()
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		case ElementListEnd:
			if !inList {
				return nil, malformed(ErrUnexpectedItem, "list end")
			}
			cur.Set(listKey, list)
			listKey, list, inList = "", nil, false
		default:
			return nil, malformed(protocol.ErrUnknownType, fmt.Sprintf("element %d", element))
		}
	}
	if inList {
		return nil, malformed(ErrUnterminatedList, listKey)
	}
	if len(stack) != 1 {
		return nil, malformed(ErrUnbalanced, fmt.Sprintf("%d open sections", len(stack)-1))
	}
	return root, nil
}

func malformed(err error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", protocol.ErrMalformedMessage, err)
	}
	return fmt.Errorf("%w: %w: %s", protocol.ErrMalformedMessage, err, detail)
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) name() (string, error) {
	if len(d.buf)-d.pos < 1 {
		return "", malformed(ErrShortElement, "name length")
	}
	n := int(d.buf[d.pos])
	d.pos++
	if len(d.buf)-d.pos < n {
		return "", malformed(ErrShortElement, "name")
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

func (d *decoder) value() (string, error) {
	if len(d.buf)-d.pos < 2 {
		return "", malformed(ErrShortElement, "value length")
	}
	n := int(binary.BigEndian.Uint16(d.buf[d.pos : d.pos+2]))
	d.pos += 2
	if len(d.buf)-d.pos < n {
		return "", malformed(ErrShortElement, "value")
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}
