// Package conffile maps symbolic node ids to concrete node types and
// default options.
package conffile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Resolve for ids the file does not declare.
var ErrNotFound = errors.New("id not declared")

// Resolver resolves a symbolic id to a type name and "key=value" option
// defaults.
type Resolver interface {
	Resolve(id string) (typeName string, opts []string, err error)
}

// Entry is one declared id.
type Entry struct {
	ID      string
	Type    string
	Options []string
}

// File is a Resolver backed by a conffile document:
//
//	{"nodetypes": [{"name": "id", "type": "timer", "options": {"interval": 100}}]}
type File struct {
	entries map[string]Entry
	ids     []string
}

type rawEntry struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Options yaml.Node `yaml:"options"`
}

type rawFile struct {
	NodeTypes []yaml.Node `yaml:"nodetypes"`
}

// Load parses a conffile document from r.
func Load(r io.Reader, source string) (*File, error) {
	var raw rawFile
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{entries: map[string]Entry{}}, nil
		}
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	f := &File{entries: make(map[string]Entry)}
	for i := range raw.NodeTypes {
		n := &raw.NodeTypes[i]
		var re rawEntry
		if err := n.Decode(&re); err != nil {
			return nil, fmt.Errorf("%s:%d:%d: %w", source, n.Line, n.Column, err)
		}
		if re.Name == "" || re.Type == "" {
			return nil, fmt.Errorf("%s:%d:%d: node type entry needs name and type", source, n.Line, n.Column)
		}
		if _, dup := f.entries[re.Name]; dup {
			slog.Warn("ignoring duplicate conffile id", "file", source, "line", n.Line, "id", re.Name)
			continue
		}
		opts, err := decodeOptions(&re.Options)
		if err != nil {
			return nil, fmt.Errorf("%s:%d:%d: id %q: %w", source, n.Line, n.Column, re.Name, err)
		}
		f.entries[re.Name] = Entry{ID: re.Name, Type: re.Type, Options: opts}
		f.ids = append(f.ids, re.Name)
	}
	return f, nil
}

// LoadFile loads the conffile at path.
func LoadFile(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open conffile: %w", err)
	}
	defer r.Close()
	return Load(r, path)
}

// Resolve implements Resolver.
func (f *File) Resolve(id string) (string, []string, error) {
	e, ok := f.entries[id]
	if !ok {
		return "", nil, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return e.Type, append([]string(nil), e.Options...), nil
}

// Entries returns the declared ids in file order.
func (f *File) Entries() []Entry {
	out := make([]Entry, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, f.entries[id])
	}
	return out
}

// decodeOptions flattens an options object into sorted "key=value" strings.
// An object value becomes the explicit suboption form "field:value|...".
func decodeOptions(n *yaml.Node) ([]string, error) {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("options must be an object")
	}
	var opts []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			opts = append(opts, key+"="+val.Value)
		case yaml.MappingNode:
			var parts []string
			for j := 0; j+1 < len(val.Content); j += 2 {
				if val.Content[j+1].Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("option %q: field %q must be a scalar", key, val.Content[j].Value)
				}
				parts = append(parts, val.Content[j].Value+":"+val.Content[j+1].Value)
			}
			opts = append(opts, key+"="+strings.Join(parts, "|"))
		default:
			return nil, fmt.Errorf("option %q must be a scalar or an object", key)
		}
	}
	sort.Strings(opts)
	return opts, nil
}
