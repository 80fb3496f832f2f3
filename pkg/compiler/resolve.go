package compiler

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/conffile"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

func (c *Context) resolveNodes(u *Unit) error {
	u.Bindings = make([]Binding, 0, len(u.Graph.Nodes))
	for _, n := range u.Graph.Nodes {
		b, err := c.Resolve(u, n)
		if err != nil {
			return err
		}
		u.Bindings = append(u.Bindings, b)
	}
	return nil
}

// Resolve binds node n of unit u to a type. The common catalog is searched
// first, then the unit's declared types, then the component name is
// resolved through the conffile and both catalogs are searched again with
// the result.
func (c *Context) Resolve(u *Unit, n *fbp.Node) (Binding, error) {
	meta := append([]fbp.Meta(nil), n.Meta...)
	if t, role, ok := c.lookup(u, n.Component); ok {
		slog.Debug("resolved node", "node", n.Name, "type", t.Name, "role", role.String())
		return Binding{Type: t, Role: role, Meta: meta}, nil
	}

	if c.cfg.Resolver == nil {
		return Binding{}, diagf(TypeNotFound, u.Path, n.Pos, "Couldn't find node type '%s' for node '%s'", n.Component, n.Name)
	}
	typeName, defaults, err := c.cfg.Resolver.Resolve(n.Component)
	if err != nil {
		if errors.Is(err, conffile.ErrNotFound) {
			return Binding{}, diagf(TypeNotFound, u.Path, n.Pos, "Couldn't find node type '%s' for node '%s'", n.Component, n.Name)
		}
		d := diagf(IndirectionFailure, u.Path, n.Pos, "Couldn't resolve type id '%s': %v", n.Component, err)
		d.Err = err
		return Binding{}, d
	}
	meta = c.mergeDefaults(u, n, meta, defaults)

	t, role, ok := c.lookup(u, typeName)
	if !ok {
		return Binding{}, diagf(TypeNotFound, u.Path, n.Pos, "Couldn't resolve type id '%s': type '%s' not found", n.Component, typeName)
	}
	slog.Debug("resolved node through conffile", "node", n.Name, "id", n.Component, "type", t.Name)
	return Binding{Type: t, Role: role, Meta: meta}, nil
}

func (c *Context) lookup(u *Unit, name string) (*catalog.TypeDescriptor, Role, bool) {
	if t, ok := c.cfg.Common.Find(name); ok {
		return t, RoleExternal, true
	}
	t, ok := u.Local.Find(name)
	if !ok {
		return nil, 0, false
	}
	for _, s := range u.Subflows {
		if s.Name == name {
			return t, RoleSubflow, true
		}
	}
	return t, RoleMetatype, true
}

// mergeDefaults appends conffile "key=value" defaults whose key has no
// explicit value on the node.
func (c *Context) mergeDefaults(u *Unit, n *fbp.Node, meta []fbp.Meta, defaults []string) []fbp.Meta {
	for _, def := range defaults {
		key, value, ok := strings.Cut(def, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			c.warn(diagf(MalformedSuboption, u.Path, n.Pos, "Couldn't handle '%s' conffile option, ignoring this option...", def))
			continue
		}
		if hasKey(meta, key) {
			continue
		}
		meta = append(meta, fbp.Meta{Key: key, Value: value, Pos: n.Pos})
	}
	return meta
}

func hasKey(meta []fbp.Meta, key string) bool {
	for _, m := range meta {
		if m.Key == key {
			return true
		}
	}
	return false
}
