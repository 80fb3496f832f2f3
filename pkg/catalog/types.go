package catalog

// PortDescriptor describes one input or output port of a node type.
// ArraySize 0 means a scalar port; BasePortIdx is the flattened index of
// element 0.
type PortDescriptor struct {
	Name        string
	DataType    string
	ArraySize   int
	BasePortIdx int
}

// IsArray reports whether the port is a fixed-size array port.
func (p PortDescriptor) IsArray() bool { return p.ArraySize > 0 }

// Width is the number of flattened slots the port occupies.
func (p PortDescriptor) Width() int {
	if p.ArraySize > 0 {
		return p.ArraySize
	}
	return 1
}

// OptionDescriptor describes one configurable option of a node type.
// A nil Default means the catalog gave no default.
type OptionDescriptor struct {
	Name     string
	DataType string
	Default  Value
}

// TypeDescriptor is a node type known to the compiler.
type TypeDescriptor struct {
	Name          string
	Symbol        string
	OptionsSymbol string
	InPorts       []PortDescriptor
	OutPorts      []PortDescriptor
	Options       []OptionDescriptor

	// GeneratedOptions marks types whose options struct is emitted by the
	// compiler itself (synthesized subflow types).
	GeneratedOptions bool
}

// FindInPort returns the input port named name.
func (t *TypeDescriptor) FindInPort(name string) (PortDescriptor, bool) {
	return findPort(t.InPorts, name)
}

// FindOutPort returns the output port named name.
func (t *TypeDescriptor) FindOutPort(name string) (PortDescriptor, bool) {
	return findPort(t.OutPorts, name)
}

// FindOption returns the index of the option named name, or -1.
func (t *TypeDescriptor) FindOption(name string) int {
	for i, o := range t.Options {
		if o.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of t. Values are immutable, so copying the
// slices is enough.
func (t *TypeDescriptor) Clone() *TypeDescriptor {
	c := *t
	c.InPorts = append([]PortDescriptor(nil), t.InPorts...)
	c.OutPorts = append([]PortDescriptor(nil), t.OutPorts...)
	c.Options = append([]OptionDescriptor(nil), t.Options...)
	return &c
}

func findPort(ports []PortDescriptor, name string) (PortDescriptor, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortDescriptor{}, false
}
