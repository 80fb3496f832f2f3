package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError describes a catalog entry that was dropped while loading.
type ParseError struct {
	Source string
	Line   int
	Column int
	Type   string
	Reason string
}

func (e ParseError) Error() string {
	loc := fmt.Sprintf("%s:%d:%d", e.Source, e.Line, e.Column)
	if e.Type != "" {
		return fmt.Sprintf("%s: type %q: %s", loc, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

// ─── document shape ───────────────────────────────────────────────────────────

type rawPort struct {
	Name        string `yaml:"name"`
	DataType    string `yaml:"data_type"`
	ArraySize   int    `yaml:"array_size"`
	BasePortIdx int    `yaml:"base_port_idx"`
}

type rawOption struct {
	Name     string    `yaml:"name"`
	DataType string    `yaml:"data_type"`
	Default  yaml.Node `yaml:"default"`
}

type rawType struct {
	Name          string    `yaml:"name"`
	Symbol        string    `yaml:"symbol"`
	OptionsSymbol string    `yaml:"options_symbol"`
	InPorts       []rawPort `yaml:"in_ports"`
	OutPorts      []rawPort `yaml:"out_ports"`
	Options       struct {
		Members []rawOption `yaml:"members"`
	} `yaml:"options"`
}

// ─── loading ──────────────────────────────────────────────────────────────────

// Load parses one catalog document from r and appends its types. The
// document is an object whose values are arrays of type entries; JSON and
// YAML are both accepted. A malformed entry is logged, recorded in
// Rejected and skipped. Only a document of the wrong shape fails the load.
func (c *Catalog) Load(r io.Reader, source string) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty catalog document", source)
		}
		return fmt.Errorf("%s: %w", source, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s:%d:%d: catalog document must be an object", source, root.Line, root.Column)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, list := root.Content[i], root.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return fmt.Errorf("%s:%d:%d: %q must be an array of types", source, list.Line, list.Column, key.Value)
		}
		for _, entry := range list.Content {
			t, err := decodeType(entry)
			if err == nil {
				err = c.Add(t)
			}
			if err != nil {
				pe := ParseError{
					Source: source,
					Line:   entry.Line,
					Column: entry.Column,
					Type:   entryName(entry),
					Reason: err.Error(),
				}
				slog.Warn("dropping catalog entry", "file", source, "line", pe.Line, "column", pe.Column, "type", pe.Type, "reason", pe.Reason)
				c.rejected = append(c.rejected, pe)
			}
		}
	}
	return nil
}

// LoadFile loads the catalog document at path.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return c.Load(f, path)
}

// LoadPaths loads every path in order. A directory contributes its .json,
// .yaml and .yml files in lexical order; dot entries are skipped.
func (c *Catalog) LoadPaths(paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat catalog: %w", err)
		}
		if !info.IsDir() {
			if err := c.LoadFile(p); err != nil {
				return err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return fmt.Errorf("read catalog dir: %w", err)
		}
		var files []string
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") || e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(name)) {
			case ".json", ".yaml", ".yml":
				files = append(files, filepath.Join(p, name))
			}
		}
		sort.Strings(files)
		for _, f := range files {
			if err := c.LoadFile(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ─── entry decoding ───────────────────────────────────────────────────────────

func entryName(entry *yaml.Node) string {
	if entry.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(entry.Content); i += 2 {
		if entry.Content[i].Value == "name" && entry.Content[i+1].Kind == yaml.ScalarNode {
			return entry.Content[i+1].Value
		}
	}
	return ""
}

func decodeType(entry *yaml.Node) (*TypeDescriptor, error) {
	if entry.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("type entry must be an object")
	}
	var raw rawType
	if err := entry.Decode(&raw); err != nil {
		return nil, err
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if raw.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if len(raw.Options.Members) > 0 && raw.OptionsSymbol == "" {
		return nil, fmt.Errorf("options given without options_symbol")
	}

	t := &TypeDescriptor{
		Name:          raw.Name,
		Symbol:        raw.Symbol,
		OptionsSymbol: raw.OptionsSymbol,
	}
	var err error
	if t.InPorts, err = decodePorts("in_ports", raw.InPorts); err != nil {
		return nil, err
	}
	if t.OutPorts, err = decodePorts("out_ports", raw.OutPorts); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, m := range raw.Options.Members {
		if m.Name == "" {
			return nil, fmt.Errorf("option without name")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate option %q", m.Name)
		}
		seen[m.Name] = true
		def, err := decodeDefault(m.DataType, &m.Default)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", m.Name, err)
		}
		t.Options = append(t.Options, OptionDescriptor{Name: m.Name, DataType: m.DataType, Default: def})
	}
	return t, nil
}

func decodePorts(field string, raw []rawPort) ([]PortDescriptor, error) {
	ports := make([]PortDescriptor, 0, len(raw))
	seen := make(map[string]bool)
	for _, p := range raw {
		if p.Name == "" {
			return nil, fmt.Errorf("%s: port without name", field)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: duplicate port %q", field, p.Name)
		}
		seen[p.Name] = true
		if p.ArraySize < 0 || p.BasePortIdx < 0 {
			return nil, fmt.Errorf("%s: port %q has negative size or index", field, p.Name)
		}
		ports = append(ports, PortDescriptor{
			Name:        p.Name,
			DataType:    p.DataType,
			ArraySize:   p.ArraySize,
			BasePortIdx: p.BasePortIdx,
		})
	}

	byBase := append([]PortDescriptor(nil), ports...)
	sort.SliceStable(byBase, func(i, j int) bool { return byBase[i].BasePortIdx < byBase[j].BasePortIdx })
	for i := 1; i < len(byBase); i++ {
		prev := byBase[i-1]
		if prev.BasePortIdx+prev.Width() > byBase[i].BasePortIdx {
			return nil, fmt.Errorf("%s: ports %q and %q overlap", field, prev.Name, byBase[i].Name)
		}
	}
	return ports, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// decodeDefault turns a default node into the Value variant matching
// dataType. Absent and null defaults decode to nil.
func decodeDefault(dataType string, n *yaml.Node) (Value, error) {
	if isNull(n) {
		return nil, nil
	}
	if zero, ok := ZeroComposite(dataType); ok {
		switch n.Kind {
		case yaml.ScalarNode:
			// a bare number is the val of a range
			v, ok := zero.(RangeValue)
			if !ok {
				return nil, fmt.Errorf("default for %s must be an object", dataType)
			}
			tok, ok := NumericToken(dataType, n.Value)
			if !ok {
				return nil, fmt.Errorf("invalid %s default %q", dataType, n.Value)
			}
			v.Val = tok
			return v, nil
		case yaml.MappingNode:
			v := zero
			for i := 0; i+1 < len(n.Content); i += 2 {
				k, fv := n.Content[i], n.Content[i+1]
				if fv.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("default field %q must be a scalar", k.Value)
				}
				if !slices.Contains(v.FieldNames(), k.Value) {
					return nil, fmt.Errorf("unknown field %q in %s default", k.Value, dataType)
				}
				if isNull(fv) {
					continue
				}
				tok, ok := NumericToken(dataType, fv.Value)
				if !ok {
					return nil, fmt.Errorf("invalid value %q for field %q of %s default", fv.Value, k.Value, dataType)
				}
				v, _ = v.WithField(k.Value, tok)
			}
			return v, nil
		default:
			return nil, fmt.Errorf("default for %s must be an object", dataType)
		}
	}
	if n.Kind == yaml.ScalarNode {
		if !ValidScalar(dataType, n.Value) {
			return nil, fmt.Errorf("invalid %s default %q", dataType, n.Value)
		}
		return StringValue{Text: n.Value}, nil
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return nil, err
	}
	return RawValue{Text: strings.TrimSpace(string(out))}, nil
}
