// Package metatype holds the code generators for declared node types that
// are not FBP files.
package metatype

import (
	"fmt"
	"sort"

	"github.com/dave/jennifer/jen"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
)

// FlowPkg is the import path of the runtime package generated code uses.
const FlowPkg = "github.com/ravi-parthasarathy/fbpgen/pkg/flow"

// Context is the output a metatype writes its code into.
type Context struct {
	File *jen.File
}

// Decl is one declaration of a metatype in a flow.
type Decl struct {
	Name     string
	Contents string
	// FuncName is the function GenerateType must define. It returns
	// (*flow.NodeType, error).
	FuncName string
}

// Metatype generates node types from a declaration's contents.
type Metatype interface {
	// Ports describes the ports of a type declared with contents.
	Ports(contents string) (in, out []catalog.PortDescriptor, err error)
	// GenerateStart emits code shared by every declaration of the kind.
	GenerateStart(ctx *Context) error
	// GenerateType emits the constructor of one declaration.
	GenerateType(ctx *Context, d Decl) error
	// GenerateEnd emits code after the last declaration of the kind.
	GenerateEnd(ctx *Context) error
}

// Declarer is implemented by metatypes whose GenerateStart declares
// package-level identifiers of its own.
type Declarer interface {
	Declares() []string
}

// Registry maps declaration kinds to Metatype implementations.
type Registry struct {
	metatypes map[string]Metatype
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{metatypes: make(map[string]Metatype)}
}

// DefaultRegistry returns a Registry holding the built-in metatypes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("composed-new", &Composed{})
	r.Register("composed-split", &Composed{Splitter: true})
	return r
}

// Register associates a metatype with a declaration kind.
func (r *Registry) Register(kind string, m Metatype) {
	r.metatypes[kind] = m
}

// Get returns the metatype for a kind, or an error if not registered.
func (r *Registry) Get(kind string) (Metatype, error) {
	m, ok := r.metatypes[kind]
	if !ok {
		return nil, fmt.Errorf("no metatype registered for kind %q", kind)
	}
	return m, nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.metatypes))
	for k := range r.metatypes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
