package metatype

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
)

// Composed is the composed-new metatype, or composed-split when Splitter is
// set. Contents list the simple ports: "NAME(type)|NAME2(type)...".
type Composed struct {
	Splitter bool
}

// ParseComposedPorts parses composed contents into simple ports.
func ParseComposedPorts(contents string) ([]catalog.PortDescriptor, error) {
	var ports []catalog.PortDescriptor
	for i, field := range strings.Split(contents, "|") {
		field = strings.TrimSpace(field)
		open := strings.IndexByte(field, '(')
		if open <= 0 || !strings.HasSuffix(field, ")") {
			return nil, fmt.Errorf("couldn't parse composed port %q, expected 'NAME(type)'", field)
		}
		name := strings.TrimSpace(field[:open])
		typ := strings.TrimSpace(field[open+1 : len(field)-1])
		if typ == "" {
			return nil, fmt.Errorf("composed port %q has no type", name)
		}
		for _, p := range ports {
			if p.Name == name {
				return nil, fmt.Errorf("composed port %q declared twice", name)
			}
		}
		ports = append(ports, catalog.PortDescriptor{Name: name, DataType: typ, BasePortIdx: i})
	}
	if len(ports) < 2 {
		return nil, fmt.Errorf("a composed node must have at least two ports")
	}
	return ports, nil
}

// ComposedDataType is the packet type carried by the composed port.
func ComposedDataType(ports []catalog.PortDescriptor) string {
	types := make([]string, len(ports))
	for i, p := range ports {
		types[i] = p.DataType
	}
	return "composed:" + strings.Join(types, ",")
}

func (c *Composed) Ports(contents string) (in, out []catalog.PortDescriptor, err error) {
	simple, err := ParseComposedPorts(contents)
	if err != nil {
		return nil, nil, err
	}
	if c.Splitter {
		composed := catalog.PortDescriptor{Name: "IN", DataType: ComposedDataType(simple)}
		return []catalog.PortDescriptor{composed}, simple, nil
	}
	composed := catalog.PortDescriptor{Name: "OUT", DataType: ComposedDataType(simple)}
	return simple, []catalog.PortDescriptor{composed}, nil
}

func (c *Composed) helperName() string {
	if c.Splitter {
		return "newComposedSplitType"
	}
	return "newComposedNewType"
}

// Declares returns the shared constructor GenerateStart emits.
func (c *Composed) Declares() []string { return []string{c.helperName()} }

func (c *Composed) GenerateStart(ctx *Context) error {
	ctx.File.Func().Id(c.helperName()).
		Params(jen.Id("name").String(), jen.Id("ports").Op("...").Qual(FlowPkg, "PortType")).
		Params(jen.Op("*").Qual(FlowPkg, "NodeType"), jen.Error()).
		Block(
			jen.Return(jen.Qual(FlowPkg, "NewComposedType").Call(jen.Id("name"), jen.Lit(c.Splitter), jen.Id("ports"))),
		)
	return nil
}

func (c *Composed) GenerateType(ctx *Context, d Decl) error {
	ports, err := ParseComposedPorts(d.Contents)
	if err != nil {
		return fmt.Errorf("declaration %q: %w", d.Name, err)
	}
	args := []jen.Code{jen.Lit(d.Name)}
	for _, p := range ports {
		args = append(args, jen.Qual(FlowPkg, "PortType").Values(
			jen.Id("Name").Op(":").Lit(p.Name),
			jen.Id("DataType").Op(":").Lit(p.DataType),
		))
	}
	ctx.File.Func().Id(d.FuncName).Params().
		Params(jen.Op("*").Qual(FlowPkg, "NodeType"), jen.Error()).
		Block(jen.Return(jen.Id(c.helperName()).Call(args...)))
	return nil
}

func (c *Composed) GenerateEnd(*Context) error { return nil }
