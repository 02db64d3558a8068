package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/danmuck/vicictl/internal/config"
	"github.com/danmuck/vicictl/internal/protocol/message"
	"gopkg.in/yaml.v3"
)

// printer renders documents one after another. YAML output is a multi-document
// stream that keeps wire key order; JSON output is one object per line.
type printer struct {
	w      io.Writer
	format string
	enc    *yaml.Encoder
}

func newPrinter(w io.Writer, format string) *printer {
	if format == "" {
		format = config.OutputYAML
	}
	return &printer{w: w, format: format}
}

// print writes msg, optionally under a single heading key (the event name).
func (p *printer) print(heading string, msg *message.Message) error {
	switch p.format {
	case config.OutputJSON:
		var v any = jsonValue(msg)
		if heading != "" {
			v = map[string]any{heading: v}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", b)
		return err
	default:
		node := messageNode(msg)
		if heading != "" {
			node = &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalarNode(heading), node}}
		}
		if p.enc == nil {
			p.enc = yaml.NewEncoder(p.w)
			p.enc.SetIndent(2)
		}
		return p.enc.Encode(node)
	}
}

// close flushes the YAML stream; safe to call when nothing was printed.
func (p *printer) close() error {
	if p.enc == nil {
		return nil
	}
	err := p.enc.Close()
	p.enc = nil
	return err
}

func (p *printer) printList(heading string, items []string) error {
	return p.print("", message.New().Set(heading, items))
}

func messageNode(msg *message.Message) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range msg.Keys() {
		v, _ := msg.Get(k)
		node.Content = append(node.Content, scalarNode(k), valueNode(v))
	}
	return node
}

func valueNode(v any) *yaml.Node {
	switch val := v.(type) {
	case *message.Message:
		return messageNode(val)
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			seq.Content = append(seq.Content, stringNode(item))
		}
		return seq
	case string:
		return stringNode(val)
	default:
		return scalarNode(fmt.Sprintf("%v", val))
	}
}

// stringNode renders raw daemon bytes (DER certificates, keys) as !!binary.
func stringNode(s string) *yaml.Node {
	if utf8.ValidString(s) {
		return scalarNode(s)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString([]byte(s))}
}

// jsonValue mirrors Message.ToMap with values that are not valid UTF-8 base64
// encoded, since encoding/json would replace them with U+FFFD.
func jsonValue(msg *message.Message) map[string]any {
	out := make(map[string]any, msg.Len())
	for _, k := range msg.Keys() {
		v, _ := msg.Get(k)
		switch val := v.(type) {
		case *message.Message:
			out[k] = jsonValue(val)
		case []string:
			items := make([]string, len(val))
			for i, item := range val {
				items[i] = jsonString(item)
			}
			out[k] = items
		case string:
			out[k] = jsonString(val)
		default:
			out[k] = val
		}
	}
	return out
}

func jsonString(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// scalarNode pins the string tag so values like "1" or "true" are quoted rather
// than re-read as ints or bools.
func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
