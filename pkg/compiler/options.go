package compiler

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

func (c *Context) buildForwarding(u *Unit) error {
	for _, o := range u.Graph.Options {
		t := u.Bindings[o.Node].Type
		if t.FindOption(o.NodeOption) < 0 {
			return diagf(InvalidOptionKey, u.Path, o.Pos,
				"Couldn't export option '%s': node '%s' of type '%s' has no option '%s'",
				o.Name, u.Graph.Nodes[o.Node].Name, t.Name, o.NodeOption)
		}
		u.Forwarding = append(u.Forwarding, ForwardingRow{
			ChildIndex:  o.Node,
			ChildField:  o.NodeOption,
			ParentField: ForwardedField(o.Name),
		})
	}
	return nil
}

func (c *Context) encodeOptions(u *Unit) error {
	u.Options = make([][]ResolvedOption, len(u.Graph.Nodes))
	for i, b := range u.Bindings {
		if len(b.Meta) == 0 && !u.HasForwarding(i) {
			continue
		}
		opts, warns, err := Encode(u.Path, b.Meta, b.Type)
		for _, w := range warns {
			c.warn(w)
		}
		if err != nil {
			return err
		}
		u.Options[i] = opts
	}
	return nil
}

// Encode overlays meta on the option defaults of t and returns one value
// per option of t, in declaration order. A key t does not declare is fatal;
// malformed suboptions are returned as warnings and skipped.
func Encode(file string, meta []fbp.Meta, t *catalog.TypeDescriptor) ([]ResolvedOption, []*Diagnostic, error) {
	opts := make([]ResolvedOption, len(t.Options))
	for i, o := range t.Options {
		opts[i] = ResolvedOption{Name: o.Name, DataType: o.DataType, Value: o.Default}
	}
	var warns []*Diagnostic
	for _, m := range meta {
		i := t.FindOption(m.Key)
		if i < 0 {
			return nil, warns, diagf(InvalidOptionKey, file, m.Pos, "Invalid option key '%s' for node type '%s'", m.Key, t.Name)
		}
		v, w := encodeValue(file, m, t.Options[i])
		warns = append(warns, w...)
		opts[i].Value = v
	}
	return opts, warns, nil
}

func encodeValue(file string, m fbp.Meta, desc catalog.OptionDescriptor) (catalog.Value, []*Diagnostic) {
	raw := m.Value
	dt := catalog.CanonicalType(desc.DataType)
	if zero, ok := catalog.ZeroComposite(dt); ok {
		if isQuoted(raw) {
			raw = unquote(raw)
		}
		base, ok := desc.Default.(catalog.Composite)
		if !ok {
			base = zero
		}
		return encodeComposite(file, m, dt, base, raw)
	}
	if isQuoted(raw) {
		raw = unquote(raw)
	}
	if !catalog.ValidScalar(dt, raw) {
		w := diagf(MalformedSuboption, file, m.Pos, "Invalid %s value '%s' for option '%s', ignoring it", dt, raw, m.Key)
		return desc.Default, []*Diagnostic{w}
	}
	return catalog.StringValue{Text: raw}, nil
}

func encodeComposite(file string, m fbp.Meta, dt string, v catalog.Composite, raw string) (catalog.Value, []*Diagnostic) {
	var warns []*Diagnostic
	warn := func(format string, args ...any) {
		warns = append(warns, diagf(MalformedSuboption, file, m.Pos, format, args...))
	}
	segments := strings.Split(raw, "|")
	explicit := strings.Contains(segments[0], ":")
	fields := v.FieldNames()
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		var field, tok string
		if explicit {
			f, val, ok := strings.Cut(seg, ":")
			if !ok {
				warn("Wrong suboption format, ignoring value '%s'. You cannot mix the formats, choose one 'opt1:val1|opt2:val2...' or 'val1|val2...'", seg)
				continue
			}
			field, tok = strings.TrimSpace(f), strings.TrimSpace(val)
		} else {
			if strings.Contains(seg, ":") {
				warn("Wrong suboption format, ignoring value '%s'. You cannot mix the formats, choose one 'opt1:val1|opt2:val2...' or 'val1|val2...'", seg)
				continue
			}
			if i >= len(fields) {
				warn("Too many values for option '%s', ignoring value '%s'", m.Key, seg)
				continue
			}
			field, tok = fields[i], seg
		}
		if !slices.Contains(fields, field) {
			warn("Unknown field '%s' for option '%s' of type '%s', ignoring it", field, m.Key, dt)
			continue
		}
		if tok == "" {
			continue
		}
		norm, ok := catalog.NumericToken(dt, tok)
		if !ok {
			warn("Invalid value '%s' for field '%s' of option '%s', ignoring it", tok, field, m.Key)
			continue
		}
		v, _ = v.WithField(field, norm)
	}
	return v, warns
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// unquote strips the quotes of an FBP string literal and resolves its
// escapes.
func unquote(s string) string {
	if u, err := strconv.Unquote(strings.ReplaceAll(s, `\'`, `'`)); err == nil {
		return u
	}
	return s[1 : len(s)-1]
}
