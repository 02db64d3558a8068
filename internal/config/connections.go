package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/vicictl/internal/protocol/message"
)

// Definition is one named connection or pool section read from a definitions file.
type Definition struct {
	Name string
	Body *message.Message
}

// Message wraps the body under its name, the shape load-conn and load-pool expect.
func (d Definition) Message() *message.Message {
	return message.New().Set(d.Name, d.Body)
}

// Definitions holds the sections of a definitions file in file order.
type Definitions struct {
	Connections []Definition
	Pools       []Definition
}

type definitionsFile struct {
	Connections map[string]map[string]any `toml:"connections"`
	Pools       map[string]map[string]any `toml:"pools"`
}

// LoadDefinitions reads [connections.<name>] and [pools.<name>] tables.
func LoadDefinitions(path string) (Definitions, error) {
	var raw definitionsFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Definitions{}, fmt.Errorf("load definitions: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Definitions{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	var out Definitions
	for _, key := range meta.Keys() {
		if len(key) != 2 {
			continue
		}
		var (
			tables map[string]map[string]any
			dst    *[]Definition
		)
		switch key[0] {
		case "connections":
			tables, dst = raw.Connections, &out.Connections
		case "pools":
			tables, dst = raw.Pools, &out.Pools
		default:
			continue
		}
		name := strings.TrimSpace(key[1])
		body, ok := tables[key[1]]
		if !ok || name == "" {
			continue
		}
		if err := validateDefinition(key.String(), body); err != nil {
			return Definitions{}, err
		}
		*dst = append(*dst, Definition{Name: name, Body: message.FromMap(body)})
	}
	return out, nil
}

func validateDefinition(path string, body map[string]any) error {
	for k, v := range body {
		switch val := v.(type) {
		case map[string]any:
			if err := validateDefinition(path+"."+k, val); err != nil {
				return err
			}
		case []map[string]any:
			return fmt.Errorf("%w: %s.%s: arrays of tables are not supported", ErrInvalidConfig, path, k)
		case []any:
			for _, item := range val {
				if _, nested := item.(map[string]any); nested {
					return fmt.Errorf("%w: %s.%s: lists must hold scalars", ErrInvalidConfig, path, k)
				}
			}
		}
	}
	return nil
}
