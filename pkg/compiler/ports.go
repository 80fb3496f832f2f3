package compiler

import (
	"sort"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
	"github.com/ravi-parthasarathy/fbpgen/pkg/flow"
)

// AnyType is the data type compatible with every other data type.
const AnyType = "any"

var errorPort = catalog.PortDescriptor{
	Name:        flow.ErrorPortName,
	DataType:    "error",
	BasePortIdx: flow.ErrorPortIndex,
}

// lookupPort finds a port by name. Output lookups fall back to the
// implicit error port only when the type declares no port of that name.
func lookupPort(t *catalog.TypeDescriptor, name string, dir Direction) (catalog.PortDescriptor, bool) {
	if dir == In {
		return t.FindInPort(name)
	}
	if p, ok := t.FindOutPort(name); ok {
		return p, true
	}
	if name == flow.ErrorPortName {
		return errorPort, true
	}
	return catalog.PortDescriptor{}, false
}

// flatten returns the flattened index of element idx of port p.
func flatten(u *Unit, p catalog.PortDescriptor, typeName string, idx int, pos fbp.Position) (int, error) {
	if p.IsArray() {
		if idx == fbp.NoIndex {
			return 0, diagf(ArrayIndexRequired, u.Path, pos,
				"Port '%s' from node type '%s' is an array port and no index was given", p.Name, typeName)
		}
		if idx >= p.ArraySize {
			return 0, diagf(ArrayIndexOutOfBounds, u.Path, pos,
				"Port '%s' from node type '%s' has size '%d', but given index '%d' is out of bounds", p.Name, typeName, p.ArraySize, idx)
		}
		return p.BasePortIdx + idx, nil
	}
	if idx != fbp.NoIndex && idx != 0 {
		return 0, diagf(ArrayIndexOutOfBounds, u.Path, pos,
			"Port '%s' from node type '%s' has size '%d', but given index '%d' is out of bounds", p.Name, typeName, 0, idx)
	}
	return p.BasePortIdx, nil
}

// Compatible reports whether data may flow from a port of type src to a
// port of type dst.
func Compatible(src, dst string) bool {
	return src == dst || src == AnyType || dst == AnyType
}

// BuildConnections validates every connection of u and returns the
// flattened rows sorted by (SrcNode, SrcPort). Rows with equal keys keep
// their source order.
func BuildConnections(u *Unit) ([]ConnectionRow, error) {
	g := u.Graph
	rows := make([]ConnectionRow, 0, len(g.Conns))
	for _, c := range g.Conns {
		src, dst := u.Bindings[c.Src].Type, u.Bindings[c.Dst].Type
		srcName, dstName := g.Nodes[c.Src].Name, g.Nodes[c.Dst].Name

		sp, ok := lookupPort(src, c.SrcPort, Out)
		if !ok {
			return nil, diagf(PortNotFound, u.Path, c.Pos, "Port '%s' doesn't exist for node type '%s'", c.SrcPort, src.Name)
		}
		srcPort, err := flatten(u, sp, src.Name, c.SrcIdx, c.Pos)
		if err != nil {
			return nil, err
		}
		dp, ok := lookupPort(dst, c.DstPort, In)
		if !ok {
			return nil, diagf(PortNotFound, u.Path, c.Pos, "Port '%s' doesn't exist for node type '%s'", c.DstPort, dst.Name)
		}
		dstPort, err := flatten(u, dp, dst.Name, c.DstIdx, c.Pos)
		if err != nil {
			return nil, err
		}
		if !Compatible(sp.DataType, dp.DataType) {
			return nil, diagf(PortTypeMismatch, u.Path, c.Pos,
				"Couldn't connect '%s %s -> %s %s'. Source port type '%s' doesn't match destination port type '%s'",
				srcName, c.SrcPort, c.DstPort, dstName, sp.DataType, dp.DataType)
		}
		rows = append(rows, ConnectionRow{SrcNode: c.Src, SrcPort: srcPort, DstNode: c.Dst, DstPort: dstPort})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SrcNode != rows[j].SrcNode {
			return rows[i].SrcNode < rows[j].SrcNode
		}
		return rows[i].SrcPort < rows[j].SrcPort
	})
	return rows, nil
}

// BuildExportedPorts returns one row per exported port slot of u in dir.
// Exporting a whole array port yields one row per element.
func BuildExportedPorts(u *Unit, dir Direction) ([]PortSpecRow, error) {
	exports := u.Graph.ExportedIn
	if dir == Out {
		exports = u.Graph.ExportedOut
	}
	var rows []PortSpecRow
	for _, e := range exports {
		t := u.Bindings[e.Node].Type
		nodeName := u.Graph.Nodes[e.Node].Name
		p, ok := lookupPort(t, e.Port, dir)
		if !ok {
			return nil, diagf(PortNotFound, u.Path, e.Pos, "Couldn't export '%s'. Port '%s' doesn't exist in node '%s'", e.Name, e.Port, nodeName)
		}
		switch {
		case e.Idx == fbp.NoIndex:
			for i := 0; i < p.Width(); i++ {
				rows = append(rows, PortSpecRow{Node: e.Node, Port: p.BasePortIdx + i})
			}
		case e.Idx >= p.Width():
			return nil, diagf(ArrayIndexOutOfBounds, u.Path, e.Pos,
				"Couldn't export '%s'. Index '%d' is out of range (port size: %d).", e.Name, e.Idx, p.ArraySize)
		default:
			rows = append(rows, PortSpecRow{Node: e.Node, Port: p.BasePortIdx + e.Idx})
		}
	}
	return rows, nil
}
