package flow

import (
	"fmt"
	"sort"
)

// ConnSpec connects output port SrcPort of node Src to input port DstPort
// of node Dst. Indices are flattened.
type ConnSpec struct {
	Src     int
	SrcPort int
	Dst     int
	DstPort int
}

// PortSpec names one port slot of one child node.
type PortSpec struct {
	Node int
	Port int
}

// NodeSpec describes one child of a static type.
type NodeSpec struct {
	Type    *NodeType
	Name    string
	Options Options
}

// ChildOptionsFunc derives the options of child from the options of the
// static node being opened.
type ChildOptionsFunc func(parent Options, child int, opts Options) (Options, error)

// StaticSpec is a fixed graph of child nodes. Conns must be sorted by
// (Src, SrcPort).
type StaticSpec struct {
	Nodes        []NodeSpec
	Conns        []ConnSpec
	ExportedIn   []PortSpec
	ExportedOut  []PortSpec
	ChildOptions ChildOptionsFunc
}

// NewStaticType validates spec and returns a type whose nodes open every
// child of the spec.
func NewStaticType(name string, spec *StaticSpec) (*NodeType, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("static type %q: %w", name, err)
	}
	t := &NodeType{
		Name:   name,
		static: spec,
		Open:   openStatic,
		Close:  closeStatic,
	}
	for _, p := range spec.ExportedIn {
		t.PortsIn = append(t.PortsIn, spec.Nodes[p.Node].Type.PortsIn[p.Port])
	}
	for _, p := range spec.ExportedOut {
		t.PortsOut = append(t.PortsOut, portOut(spec.Nodes[p.Node].Type, p.Port))
	}
	return t, nil
}

func portOut(t *NodeType, port int) PortType {
	if port == ErrorPortIndex {
		return PortType{Name: ErrorPortName, DataType: "error"}
	}
	return t.PortsOut[port]
}

func (s *StaticSpec) validate() error {
	if len(s.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range s.Nodes {
		if n.Type == nil {
			return fmt.Errorf("node %d (%s): nil type", i, n.Name)
		}
	}
	for i, c := range s.Conns {
		if i > 0 {
			prev := s.Conns[i-1]
			if c.Src < prev.Src || (c.Src == prev.Src && c.SrcPort < prev.SrcPort) {
				return fmt.Errorf("conn %d: not sorted by source", i)
			}
		}
		if c.Src < 0 || c.Src >= len(s.Nodes) || c.Dst < 0 || c.Dst >= len(s.Nodes) {
			return fmt.Errorf("conn %d: node out of range", i)
		}
		if c.SrcPort != ErrorPortIndex && (c.SrcPort < 0 || c.SrcPort >= len(s.Nodes[c.Src].Type.PortsOut)) {
			return fmt.Errorf("conn %d: source port %d out of range", i, c.SrcPort)
		}
		if c.DstPort < 0 || c.DstPort >= len(s.Nodes[c.Dst].Type.PortsIn) {
			return fmt.Errorf("conn %d: destination port %d out of range", i, c.DstPort)
		}
	}
	for i, p := range s.ExportedIn {
		if p.Node < 0 || p.Node >= len(s.Nodes) || p.Port < 0 || p.Port >= len(s.Nodes[p.Node].Type.PortsIn) {
			return fmt.Errorf("exported in %d: out of range", i)
		}
	}
	for i, p := range s.ExportedOut {
		if p.Node < 0 || p.Node >= len(s.Nodes) {
			return fmt.Errorf("exported out %d: out of range", i)
		}
		if p.Port != ErrorPortIndex && (p.Port < 0 || p.Port >= len(s.Nodes[p.Node].Type.PortsOut)) {
			return fmt.Errorf("exported out %d: out of range", i)
		}
	}
	return nil
}

// ConnsFrom returns the connections leaving port of node src. It relies on
// the sort order of Conns.
func (s *StaticSpec) ConnsFrom(src, port int) []ConnSpec {
	lo := sort.Search(len(s.Conns), func(i int) bool {
		c := s.Conns[i]
		return c.Src > src || (c.Src == src && c.SrcPort >= port)
	})
	hi := lo
	for hi < len(s.Conns) && s.Conns[hi].Src == src && s.Conns[hi].SrcPort == port {
		hi++
	}
	return s.Conns[lo:hi]
}

func openStatic(n *Node) error {
	spec := n.Type.static
	for i, ns := range spec.Nodes {
		opts := ns.Options
		if spec.ChildOptions != nil {
			var err error
			if opts, err = spec.ChildOptions(n.Options, i, opts); err != nil {
				closeStatic(n)
				return fmt.Errorf("options of %q: %w", ns.Name, err)
			}
		}
		child, err := NewNode(ns.Type, ns.Name, opts)
		if err != nil {
			closeStatic(n)
			return err
		}
		child.Parent = n
		n.children = append(n.children, child)
	}
	return nil
}

func closeStatic(n *Node) {
	for i := len(n.children) - 1; i >= 0; i-- {
		n.children[i].Close()
	}
	n.children = nil
}
