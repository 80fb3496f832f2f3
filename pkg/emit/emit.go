// Package emit renders a compiled unit tree as a single Go source file.
package emit

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/compiler"
	"github.com/ravi-parthasarathy/fbpgen/pkg/metatype"
)

// Header is the first line of every generated file.
const Header = "Code generated by fbpgen. DO NOT EDIT."

// Options selects the shape of the generated file.
type Options struct {
	// Symbol switches to accessor mode: the file declares
	// func Symbol() (*flow.NodeType, error) instead of a main program.
	Symbol string
	// Package is the package clause in accessor mode.
	Package string
}

var multiLine = jen.Options{Open: "{", Close: "}", Separator: ",", Multi: true}

type generator struct {
	ctx  *compiler.Context
	file *jen.File
}

// Generate renders every unit of ctx. Generate is called once per Context:
// shared metatype code is only emitted the first time a kind is seen.
func Generate(ctx *compiler.Context, opts Options) ([]byte, error) {
	root := ctx.Root()
	if root == nil {
		return nil, errors.New("emit: nothing compiled")
	}
	pkg := "main"
	if opts.Symbol != "" {
		if !token.IsIdentifier(opts.Symbol) || opts.Symbol == "init" || opts.Symbol == "main" {
			return nil, fmt.Errorf("emit: invalid symbol %q", opts.Symbol)
		}
		pkg = opts.Package
		if !token.IsIdentifier(pkg) {
			return nil, fmt.Errorf("emit: invalid package name %q", pkg)
		}
	}

	g := &generator{ctx: ctx, file: jen.NewFile(pkg)}
	g.file.HeaderComment(Header)
	if err := g.aliasImports(opts.Symbol); err != nil {
		return nil, err
	}

	if err := g.metatypes(); err != nil {
		return nil, err
	}
	units := ctx.Units()
	for i := len(units) - 1; i >= 0; i-- {
		g.unit(units[i])
	}
	g.initializeTypes()
	if opts.Symbol != "" {
		g.accessor(root, opts.Symbol)
	} else {
		g.standalone(root)
	}

	var buf bytes.Buffer
	if err := g.file.Render(&buf); err != nil {
		return nil, fmt.Errorf("emit: render: %w", err)
	}
	out, err := imports.Process("", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: format: %w", err)
	}
	return out, nil
}

// PackageName derives a package name from the directory of the output
// path.
func PackageName(output string) string {
	abs, err := filepath.Abs(output)
	if err != nil {
		abs = output
	}
	base := strings.ToLower(filepath.Base(filepath.Dir(abs)))
	name := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, base)
	if !token.IsIdentifier(name) {
		name = "flows"
	}
	return name
}

// ─── metatypes ────────────────────────────────────────────────────────────────

func (g *generator) metatypes() error {
	var kinds []string
	decls := make(map[string][]metatype.Decl)
	for _, u := range g.ctx.Units() {
		for _, d := range u.Metatypes {
			if _, ok := decls[d.Kind]; !ok {
				kinds = append(kinds, d.Kind)
			}
			decls[d.Kind] = append(decls[d.Kind], metatype.Decl{Name: d.Name, Contents: d.Contents, FuncName: d.FuncName})
		}
	}
	mctx := &metatype.Context{File: g.file}
	for _, kind := range kinds {
		mt, err := g.ctx.Metatypes().Get(kind)
		if err != nil {
			return err
		}
		if g.ctx.FirstGeneration(kind) {
			if err := mt.GenerateStart(mctx); err != nil {
				return fmt.Errorf("metatype %s: %w", kind, err)
			}
		}
		for _, d := range decls[kind] {
			if err := mt.GenerateType(mctx, d); err != nil {
				return fmt.Errorf("metatype %s: %w", kind, err)
			}
		}
		if err := mt.GenerateEnd(mctx); err != nil {
			return fmt.Errorf("metatype %s: %w", kind, err)
		}
	}
	return nil
}

// ─── units ────────────────────────────────────────────────────────────────────

func (g *generator) unit(u *compiler.Unit) {
	base := lowerFirst(u.Stem)
	if u.Type.OptionsSymbol != "" {
		g.optionsStruct(u, base)
	}
	if len(u.Forwarding) > 0 {
		g.childOptions(u, base)
	}
	g.createFunc(u, base)
}

func (g *generator) optionsStruct(u *compiler.Unit, base string) {
	t := u.Type
	g.file.Commentf("%s holds the exported options of %s.", t.OptionsSymbol, u.Name)
	g.file.Type().Id(t.OptionsSymbol).StructFunc(func(s *jen.Group) {
		for _, o := range t.Options {
			s.Id(compiler.FieldName(t, o.Name)).Add(fieldType(o.DataType))
		}
	})
	defaults := make([]compiler.ResolvedOption, len(t.Options))
	for i, o := range t.Options {
		defaults[i] = compiler.ResolvedOption{Name: o.Name, DataType: o.DataType, Value: o.Default}
	}
	g.file.Var().Id(base+"Defaults").Op("=").Add(optionsLiteral(t, defaults))
}

// childOptions emits the function that copies exported option values of
// the unit into the options of its children.
func (g *generator) childOptions(u *compiler.Unit, base string) {
	var children []int
	rows := make(map[int][]compiler.ForwardingRow)
	for _, f := range u.Forwarding {
		if _, ok := rows[f.ChildIndex]; !ok {
			children = append(children, f.ChildIndex)
		}
		rows[f.ChildIndex] = append(rows[f.ChildIndex], f)
	}
	slices.Sort(children)

	g.file.Func().Id(base+"ChildOptions").Params(
		jen.Id("parent").Qual(flowPkg, "Options"),
		jen.Id("child").Int(),
		jen.Id("opts").Qual(flowPkg, "Options"),
	).Params(jen.Qual(flowPkg, "Options"), jen.Error()).Block(
		jen.Id("p").Op(":=").Id(base+"Defaults"),
		jen.If(jen.Id("parent").Op("!=").Nil()).Block(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("parent").Assert(jen.Id(u.Type.OptionsSymbol)),
			jen.If(jen.Op("!").Id("ok")).Block(
				jen.Return(jen.Nil(), jen.Qual("fmt", "Errorf").Call(jen.Lit(u.Name+": unexpected options type %T"), jen.Id("parent"))),
			),
			jen.Id("p").Op("=").Id("v"),
		),
		jen.Switch(jen.Id("child")).BlockFunc(func(sw *jen.Group) {
			for _, child := range children {
				t := u.Bindings[child].Type
				sw.Case(jen.Lit(child)).BlockFunc(func(c *jen.Group) {
					c.Id("o").Op(":=").Id("opts").Assert(symbol(t.OptionsSymbol))
					for _, f := range rows[child] {
						c.Id("o").Dot(compiler.FieldName(t, f.ChildField)).Op("=").Id("p").Dot(compiler.GoName(f.ParentField))
					}
					c.Return(jen.Id("o"), jen.Nil())
				})
			}
		}),
		jen.Return(jen.Id("opts"), jen.Nil()),
	)
}

func (g *generator) createFunc(u *compiler.Unit, base string) {
	var body []jen.Code

	hasOpts := make([]bool, len(u.Bindings))
	for i, opts := range u.Options {
		t := u.Bindings[i].Type
		if opts == nil || t.OptionsSymbol == "" {
			continue
		}
		hasOpts[i] = true
		body = append(body, jen.Id(optsVar(i)).Op(":=").Add(optionsLiteral(t, opts)))
	}

	spec := []jen.Code{jen.Id("Nodes").Op(":").Id("nodes")}
	if len(u.Conns) > 0 {
		body = append(body, jen.Id("conns").Op(":=").Index().Qual(flowPkg, "ConnSpec").CustomFunc(multiLine, func(l *jen.Group) {
			for _, c := range u.Conns {
				l.Values(
					jen.Id("Src").Op(":").Lit(c.SrcNode),
					jen.Id("SrcPort").Op(":").Lit(c.SrcPort),
					jen.Id("Dst").Op(":").Lit(c.DstNode),
					jen.Id("DstPort").Op(":").Lit(c.DstPort),
				)
			}
		}))
		spec = append(spec, jen.Id("Conns").Op(":").Id("conns"))
	}
	for _, exp := range []struct {
		name  string
		field string
		rows  []compiler.PortSpecRow
	}{
		{"exportedIn", "ExportedIn", u.ExportedIn},
		{"exportedOut", "ExportedOut", u.ExportedOut},
	} {
		if len(exp.rows) == 0 {
			continue
		}
		body = append(body, jen.Id(exp.name).Op(":=").Index().Qual(flowPkg, "PortSpec").CustomFunc(multiLine, func(l *jen.Group) {
			for _, r := range exp.rows {
				l.Values(jen.Id("Node").Op(":").Lit(r.Node), jen.Id("Port").Op(":").Lit(r.Port))
			}
		}))
		spec = append(spec, jen.Id(exp.field).Op(":").Id(exp.name))
	}
	if len(u.Forwarding) > 0 {
		spec = append(spec, jen.Id("ChildOptions").Op(":").Id(base+"ChildOptions"))
	}

	body = append(body, g.declaredTypes(u)...)

	body = append(body, jen.Id("nodes").Op(":=").Index().Qual(flowPkg, "NodeSpec").CustomFunc(multiLine, func(l *jen.Group) {
		for i, n := range u.Graph.Nodes {
			fields := []jen.Code{jen.Id("Name").Op(":").Lit(n.Name)}
			if hasOpts[i] {
				fields = append(fields, jen.Id("Options").Op(":").Id(optsVar(i)))
			}
			l.Values(fields...)
		}
	}))
	for i, b := range u.Bindings {
		body = append(body, jen.Id("nodes").Index(jen.Lit(i)).Dot("Type").Op("=").Add(symbol(b.Type.Symbol)))
	}
	body = append(body, jen.Return(jen.Qual(flowPkg, "NewStaticType").Call(
		jen.Lit(u.Name),
		jen.Op("&").Qual(flowPkg, "StaticSpec").Custom(multiLine, spec...),
	)))

	g.file.Commentf("%s builds the node type of %s.", u.FuncName, filepath.Base(u.Path))
	g.file.Func().Id(u.FuncName).Params().
		Params(jen.Op("*").Qual(flowPkg, "NodeType"), jen.Error()).
		Block(body...)
}

// declaredTypes creates the subflow and metatype types the unit's nodes
// use, in declaration order. Unused declarations get no variable.
func (g *generator) declaredTypes(u *compiler.Unit) []jen.Code {
	used := make(map[string]*catalog.TypeDescriptor)
	for _, b := range u.Bindings {
		if b.Role != compiler.RoleExternal {
			used[b.Type.Name] = b.Type
		}
	}
	funcs := make(map[string]string)
	for _, s := range u.Subflows {
		funcs[s.Name] = g.ctx.Unit(s.Unit).FuncName
	}
	for _, m := range u.Metatypes {
		funcs[m.Name] = m.FuncName
	}

	var code []jen.Code
	for _, d := range u.Graph.Declarations {
		t, ok := used[d.Name]
		if !ok {
			continue
		}
		code = append(code,
			jen.List(jen.Id(t.Symbol), jen.Err()).Op(":=").Id(funcs[d.Name]).Call(),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Err())),
		)
	}
	return code
}

// optionsLiteral renders opts as a composite literal of the options type
// of t. Options with no usable value are left out.
func optionsLiteral(t *catalog.TypeDescriptor, opts []compiler.ResolvedOption) *jen.Statement {
	return symbol(t.OptionsSymbol).CustomFunc(multiLine, func(l *jen.Group) {
		for _, o := range opts {
			if v, ok := value(o.DataType, o.Value); ok {
				l.Id(compiler.FieldName(t, o.Name)).Op(":").Add(v)
			}
		}
	})
}

// ─── entry points ─────────────────────────────────────────────────────────────

func (g *generator) initializeTypes() {
	g.file.Func().Id("initializeTypes").Params().BlockFunc(func(b *jen.Group) {
		for _, t := range g.ctx.ExternalTypes() {
			b.Add(symbol(t.Symbol)).Dot("Init").Call()
		}
	})
}

func (g *generator) standalone(root *compiler.Unit) {
	g.file.Var().Id("rootNode").Op("*").Qual(flowPkg, "Node")

	g.file.Func().Id("startup").Params().Error().Block(
		jen.Id("initializeTypes").Call(),
		jen.List(jen.Id("t"), jen.Err()).Op(":=").Id(root.FuncName).Call(),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.List(jen.Id("rootNode"), jen.Err()).Op("=").Qual(flowPkg, "NewNode").Call(jen.Id("t"), jen.Lit(root.Name), jen.Nil()),
		jen.Return(jen.Err()),
	)
	g.file.Func().Id("shutdown").Params().Block(
		jen.If(jen.Id("rootNode").Op("!=").Nil()).Block(jen.Id("rootNode").Dot("Close").Call()),
	)
	g.file.Func().Id("main").Params().Block(
		jen.Qual(flowPkg, "Main").Call(jen.Id("startup"), jen.Id("shutdown")),
	)
}

func (g *generator) accessor(root *compiler.Unit, sym string) {
	once, typ, err := lowerFirst(sym)+"Once", lowerFirst(sym)+"Type", lowerFirst(sym)+"Err"
	g.file.Var().Defs(
		jen.Id(once).Qual("sync", "Once"),
		jen.Id(typ).Op("*").Qual(flowPkg, "NodeType"),
		jen.Id(err).Error(),
	)
	g.file.Commentf("%s returns the node type built from %s.", sym, filepath.Base(root.Path))
	g.file.Func().Id(sym).Params().Params(jen.Op("*").Qual(flowPkg, "NodeType"), jen.Error()).Block(
		jen.Id(once).Dot("Do").Call(jen.Func().Params().Block(
			jen.Id("initializeTypes").Call(),
			jen.List(jen.Id(typ), jen.Id(err)).Op("=").Id(root.FuncName).Call(),
		)),
		jen.Return(jen.Id(typ), jen.Id(err)),
	)
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func optsVar(i int) string { return "opts" + strconv.Itoa(i) }

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
