package flow

import (
	"fmt"
	"strings"
)

// NewComposedType builds a type that packs its simple input ports into one
// composed "OUT" packet, or with splitter set, unpacks one composed "IN"
// packet onto simple output ports.
func NewComposedType(name string, splitter bool, ports []PortType) (*NodeType, error) {
	if len(ports) < 2 {
		return nil, fmt.Errorf("composed type %q: a composed node must have at least two ports", name)
	}
	types := make([]string, len(ports))
	for i, p := range ports {
		types[i] = p.DataType
	}
	composed := PortType{DataType: "composed:" + strings.Join(types, ",")}
	simple := append([]PortType(nil), ports...)

	t := &NodeType{Name: name}
	if splitter {
		composed.Name = "IN"
		t.PortsIn = []PortType{composed}
		t.PortsOut = simple
	} else {
		composed.Name = "OUT"
		t.PortsIn = simple
		t.PortsOut = []PortType{composed}
	}
	return t, nil
}
