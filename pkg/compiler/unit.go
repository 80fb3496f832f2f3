package compiler

import (
	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

// UnitID is the stable handle of a compiled unit inside a Context. The
// root unit is 0; nested units get increasing ids in declaration order.
type UnitID int

// Role tells where a node's type came from.
type Role int

const (
	RoleExternal Role = iota
	RoleSubflow
	RoleMetatype
)

func (r Role) String() string {
	switch r {
	case RoleSubflow:
		return "subflow"
	case RoleMetatype:
		return "metatype"
	}
	return "external"
}

// Binding is the resolved type of one graph node.
type Binding struct {
	Type *catalog.TypeDescriptor
	Role Role
	// Meta is the node's explicit meta followed by any defaults merged in
	// from the conffile.
	Meta []fbp.Meta
}

// SubflowDecl is a nested FBP file declared by a unit.
type SubflowDecl struct {
	Name string
	Unit UnitID
	Pos  fbp.Position
}

// MetatypeDecl is a metatype declared by a unit.
type MetatypeDecl struct {
	Name     string
	Kind     string
	Contents string
	FuncName string
	Pos      fbp.Position
}

// ConnectionRow is a flattened connection between two child nodes.
type ConnectionRow struct {
	SrcNode, SrcPort int
	DstNode, DstPort int
}

// PortSpecRow is one exported port slot.
type PortSpecRow struct {
	Node, Port int
}

// ResolvedOption is the final value of one option of a node.
type ResolvedOption struct {
	Name     string
	DataType string
	Value    catalog.Value
}

// ForwardingRow copies option ParentField of the unit's own options into
// option ChildField of child node ChildIndex at instantiation.
type ForwardingRow struct {
	ChildIndex  int
	ChildField  string
	ParentField string
}

// Direction selects exported input or output ports.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "output"
	}
	return "input"
}

// Unit is one compiled FBP file.
type Unit struct {
	ID     UnitID
	Name   string
	Path   string
	Graph  *fbp.Graph
	Local  *catalog.Catalog
	Parent UnitID

	Subflows  []SubflowDecl
	Metatypes []MetatypeDecl
	Bindings  []Binding

	// Options holds, per node, the full option list in type order. Nodes
	// without meta or forwarded options have a nil entry.
	Options [][]ResolvedOption

	Conns       []ConnectionRow
	ExportedIn  []PortSpecRow
	ExportedOut []PortSpecRow
	Forwarding  []ForwardingRow

	// Type is the node type this unit exposes to its parent.
	Type *catalog.TypeDescriptor
	// Stem is the name fragment, unique across the Context, that the
	// unit's generated identifiers are built from.
	Stem string
	// FuncName is the generated constructor of Type.
	FuncName string
}

// HasForwarding reports whether node i receives forwarded options.
func (u *Unit) HasForwarding(i int) bool {
	for _, f := range u.Forwarding {
		if f.ChildIndex == i {
			return true
		}
	}
	return false
}
