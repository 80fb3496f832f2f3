// Package flow is the runtime contract that fbpgen output is compiled
// against: node types, static graph specs and node instances.
package flow

import (
	"fmt"
	"math"
	"sync"
)

// ErrorPortName is the output port every node type implicitly carries.
const ErrorPortName = "ERROR"

// ErrorPortIndex is the flattened index of the implicit error port.
const ErrorPortIndex = math.MaxUint16 - 1

// Options is the option value passed to a node at instantiation. Concrete
// node types assert it to their own options struct.
type Options any

// PortType describes one flattened port slot.
type PortType struct {
	Name     string
	DataType string
}

// NodeType is a constructor for nodes. Types declared by packages are
// package-level *NodeType values; static and composed types are built at
// run time by NewStaticType and NewComposedType.
type NodeType struct {
	Name     string
	PortsIn  []PortType
	PortsOut []PortType

	// InitType runs once, before the first node of the type is opened.
	InitType func()
	Open     func(n *Node) error
	Close    func(n *Node)

	static   *StaticSpec
	initOnce sync.Once
}

// Init runs InitType at most once.
func (t *NodeType) Init() {
	t.initOnce.Do(func() {
		if t.InitType != nil {
			t.InitType()
		}
	})
}

// Static returns the spec of a type built by NewStaticType, or nil.
func (t *NodeType) Static() *StaticSpec { return t.static }

// Node is an instance of a NodeType.
type Node struct {
	Type    *NodeType
	Name    string
	Options Options
	Parent  *Node

	children []*Node
	closed   bool
}

// NewNode instantiates t under name with opts.
func NewNode(t *NodeType, name string, opts Options) (*Node, error) {
	if t == nil {
		return nil, fmt.Errorf("node %q: nil type", name)
	}
	t.Init()
	n := &Node{Type: t, Name: name, Options: opts}
	if t.Open != nil {
		if err := t.Open(n); err != nil {
			return nil, fmt.Errorf("open node %q: %w", name, err)
		}
	}
	return n, nil
}

// Children returns the nodes of a static node, in spec order.
func (n *Node) Children() []*Node { return n.children }

// Close tears the node down, children first in reverse order. Closing twice
// is a no-op.
func (n *Node) Close() {
	if n.closed {
		return
	}
	n.closed = true
	if n.Type.Close != nil {
		n.Type.Close(n)
	}
}
