// Package fbp parses FBP flow descriptions into a Graph.
package fbp

import "fmt"

// NoIndex marks a port reference that carries no array index.
const NoIndex = -1

// Position is a 1-based line and column in the source text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Meta is one key=value assignment from a node's component clause. Quoted
// values keep their quotes.
type Meta struct {
	Key   string
	Value string
	Pos   Position
}

// Node represents a single component instance in the graph.
type Node struct {
	Name      string
	Component string
	Meta      []Meta
	Pos       Position
}

// Conn is a directed connection between two node ports. Src and Dst are
// indices into Graph.Nodes.
type Conn struct {
	Src     int
	SrcPort string
	SrcIdx  int
	Dst     int
	DstPort string
	DstIdx  int
	Pos     Position
}

// ExportedPort re-exposes a node port as a port of the enclosing flow.
type ExportedPort struct {
	Node int
	Port string
	Idx  int
	Name string
	Pos  Position
}

// Declaration introduces a named type local to the flow, such as a nested
// FBP file or a metatype instance.
type Declaration struct {
	Name     string
	Kind     string
	Contents string
	Pos      Position
}

// ExportedOption re-exposes a node option as an option of the enclosing flow.
type ExportedOption struct {
	Node       int
	NodeOption string
	Name       string
	Pos        Position
}

// Graph is the parsed representation of one FBP file. Every slice keeps
// source order.
type Graph struct {
	Nodes        []*Node
	Conns        []Conn
	ExportedIn   []ExportedPort
	ExportedOut  []ExportedPort
	Declarations []Declaration
	Options      []ExportedOption

	index map[string]int
}

// NodeIndex returns the index of the node named name.
func (g *Graph) NodeIndex(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// OutgoingConns returns all connections leaving node, in definition order.
func (g *Graph) OutgoingConns(node int) []Conn {
	var out []Conn
	for _, c := range g.Conns {
		if c.Src == node {
			out = append(out, c)
		}
	}
	return out
}

// MetaValue returns the value assigned to key on node.
func (n *Node) MetaValue(key string) (string, bool) {
	for _, m := range n.Meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}
