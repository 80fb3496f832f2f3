// Package catalog holds the node types the compiler can bind graph nodes to.
package catalog

import "fmt"

// Catalog is an ordered set of type descriptors keyed by name.
// It is append-only and not safe for concurrent use.
type Catalog struct {
	types    []*TypeDescriptor
	index    map[string]int
	rejected []ParseError
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Add stores a deep copy of t. Adding a second type with the same name is
// an error.
func (c *Catalog) Add(t *TypeDescriptor) error {
	if t == nil {
		return fmt.Errorf("add type: nil descriptor")
	}
	if t.Name == "" {
		return fmt.Errorf("add type: empty name")
	}
	if _, ok := c.index[t.Name]; ok {
		return fmt.Errorf("type %q already in catalog", t.Name)
	}
	c.index[t.Name] = len(c.types)
	c.types = append(c.types, t.Clone())
	return nil
}

// Find returns the type named name. Only exact matches are found.
func (c *Catalog) Find(name string) (*TypeDescriptor, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.types[i], true
}

// Types returns every type in insertion order.
func (c *Catalog) Types() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(c.types))
	copy(out, c.types)
	return out
}

// Len returns the number of types.
func (c *Catalog) Len() int { return len(c.types) }

// Rejected returns the entries dropped by Load, in the order met.
func (c *Catalog) Rejected() []ParseError {
	return append([]ParseError(nil), c.rejected...)
}
