// Package compiler resolves, validates and encodes FBP graphs into units
// ready for code generation.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/conffile"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
	"github.com/ravi-parthasarathy/fbpgen/pkg/metatype"
)

// Config holds the collaborators of a compilation.
type Config struct {
	// Common is the catalog loaded from -j documents.
	Common *catalog.Catalog
	// Resolver maps symbolic ids to types. Nil disables indirection.
	Resolver conffile.Resolver
	// Metatypes defaults to metatype.DefaultRegistry().
	Metatypes *metatype.Registry
	// SearchPaths are searched, in order, for declared FBP files before
	// the directory of the root input.
	SearchPaths []string
}

// Context owns every unit of one compilation. Units are addressed by
// UnitID and never move once created.
type Context struct {
	cfg      Config
	units    []*Unit
	open     map[string]bool
	rootDir  string
	started  map[string]bool
	stems    map[string]int
	warnings []*Diagnostic
}

// NewContext creates a Context for one compilation.
func NewContext(cfg Config) *Context {
	if cfg.Common == nil {
		cfg.Common = catalog.New()
	}
	if cfg.Metatypes == nil {
		cfg.Metatypes = metatype.DefaultRegistry()
	}
	return &Context{
		cfg:     cfg,
		open:    make(map[string]bool),
		started: make(map[string]bool),
		stems:   make(map[string]int),
	}
}

// CompileFile compiles the FBP file at path as the root unit.
func (c *Context) CompileFile(path string) (*Unit, error) {
	if err := c.setRoot(path); err != nil {
		return nil, err
	}
	return c.compileFile(path, unitName(path), -1, "", fbp.Position{})
}

// CompileSource compiles src as the root unit. path is used for
// diagnostics and as the base directory of declared files.
func (c *Context) CompileSource(path, src string) (*Unit, error) {
	if err := c.setRoot(path); err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	c.open[abs] = true
	defer delete(c.open, abs)
	return c.compile(unitName(path), path, src, -1)
}

func (c *Context) setRoot(path string) error {
	if len(c.units) > 0 {
		return fmt.Errorf("context already compiled %s", c.units[0].Path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return &Diagnostic{Kind: IOFailure, File: path, Message: err.Error(), Err: err}
	}
	c.rootDir = filepath.Dir(abs)
	return nil
}

// Root returns the root unit, or nil before compilation.
func (c *Context) Root() *Unit {
	if len(c.units) == 0 {
		return nil
	}
	return c.units[0]
}

// Unit returns the unit with the given id.
func (c *Context) Unit(id UnitID) *Unit { return c.units[id] }

// Units returns every unit in id order.
func (c *Context) Units() []*Unit { return append([]*Unit(nil), c.units...) }

// Metatypes returns the metatype registry of the compilation.
func (c *Context) Metatypes() *metatype.Registry { return c.cfg.Metatypes }

// Warnings returns the recoverable diagnostics met so far.
func (c *Context) Warnings() []*Diagnostic { return append([]*Diagnostic(nil), c.warnings...) }

// FirstGeneration records that shared code for a metatype kind is being
// generated and reports whether this is the first time.
func (c *Context) FirstGeneration(kind string) bool {
	if c.started[kind] {
		return false
	}
	c.started[kind] = true
	return true
}

// ExternalTypes returns every catalog type bound anywhere in the unit tree,
// once per symbol, in first-reference order.
func (c *Context) ExternalTypes() []*catalog.TypeDescriptor {
	seen := make(map[string]bool)
	var out []*catalog.TypeDescriptor
	for _, u := range c.units {
		for _, b := range u.Bindings {
			if b.Role != RoleExternal || seen[b.Type.Symbol] {
				continue
			}
			seen[b.Type.Symbol] = true
			out = append(out, b.Type)
		}
	}
	return out
}

func (c *Context) warn(d *Diagnostic) {
	slog.Warn(d.Message, "kind", d.Kind.String(), "file", d.File, "line", d.Pos.Line, "column", d.Pos.Column)
	c.warnings = append(c.warnings, d)
}

func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func localTypeVar(name string) string { return "type" + GoName(name) }

// stem is the unique Go name fragment of a unit or metatype declaration.
func (c *Context) stem(name string, id UnitID) string {
	return uniqueName(c.stems, GoName(name)+strconv.Itoa(int(id)))
}

// ─── compilation ──────────────────────────────────────────────────────────────

func (c *Context) compileFile(path, name string, parent UnitID, declFile string, declPos fbp.Position) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Diagnostic{Kind: IOFailure, File: path, Message: err.Error(), Err: err}
	}
	if c.open[abs] {
		return nil, diagf(DeclarationCycle, declFile, declPos, "Recursive declaration: '%s' is already being compiled", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &Diagnostic{Kind: IOFailure, File: path, Message: fmt.Sprintf("read file: %v", err), Err: err}
	}
	c.open[abs] = true
	defer delete(c.open, abs)
	return c.compile(name, path, string(src), parent)
}

func (c *Context) compile(name, path, src string, parent UnitID) (*Unit, error) {
	g, err := fbp.Parse(src)
	if err != nil {
		var pe *fbp.ParseError
		if errors.As(err, &pe) {
			return nil, &Diagnostic{Kind: ParseFailure, File: path, Pos: pe.Pos, Message: pe.Msg, Err: err}
		}
		return nil, &Diagnostic{Kind: ParseFailure, File: path, Message: err.Error(), Err: err}
	}

	u := &Unit{
		ID:     UnitID(len(c.units)),
		Name:   name,
		Path:   path,
		Graph:  g,
		Local:  catalog.New(),
		Parent: parent,
	}
	u.Stem = c.stem(name, u.ID)
	u.FuncName = "create" + u.Stem + "Type"
	c.units = append(c.units, u)
	slog.Debug("compiling unit", "id", u.ID, "name", name, "file", path)

	if err := c.declare(u); err != nil {
		return nil, err
	}
	if err := c.resolveNodes(u); err != nil {
		return nil, err
	}
	if err := c.buildForwarding(u); err != nil {
		return nil, err
	}
	if err := c.encodeOptions(u); err != nil {
		return nil, err
	}
	if u.Conns, err = BuildConnections(u); err != nil {
		return nil, err
	}
	if u.ExportedIn, err = BuildExportedPorts(u, In); err != nil {
		return nil, err
	}
	if u.ExportedOut, err = BuildExportedPorts(u, Out); err != nil {
		return nil, err
	}
	u.Type = synthesizeType(u)
	return u, nil
}

// ─── declarations ─────────────────────────────────────────────────────────────

func (c *Context) declare(u *Unit) error {
	vars := make(map[string]int)
	for _, d := range u.Graph.Declarations {
		v := uniqueName(vars, localTypeVar(d.Name))
		var err error
		if d.Kind == "fbp" {
			err = c.declareSubflow(u, d, v)
		} else {
			err = c.declareMetatype(u, d, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) declareSubflow(u *Unit, d fbp.Declaration, v string) error {
	path, ok := c.findFile(d.Contents)
	if !ok {
		return diagf(IOFailure, u.Path, d.Pos, "Couldn't find file '%s' for declaration '%s'", d.Contents, d.Name)
	}
	child, err := c.compileFile(path, d.Name, u.ID, u.Path, d.Pos)
	if err != nil {
		return err
	}
	child.Type.Symbol = v
	if err := u.Local.Add(child.Type); err != nil {
		return diagf(TypeNotFound, u.Path, d.Pos, "Couldn't register type '%s': %v", d.Name, err)
	}
	u.Subflows = append(u.Subflows, SubflowDecl{Name: d.Name, Unit: child.ID, Pos: d.Pos})
	return nil
}

func (c *Context) declareMetatype(u *Unit, d fbp.Declaration, v string) error {
	mt, err := c.cfg.Metatypes.Get(d.Kind)
	if err != nil {
		return diagf(TypeNotFound, u.Path, d.Pos, "Couldn't find metatype '%s' for declaration '%s'", d.Kind, d.Name)
	}
	in, out, err := mt.Ports(d.Contents)
	if err != nil {
		return diagf(ParseFailure, u.Path, d.Pos, "Invalid '%s' declaration '%s': %v", d.Kind, d.Name, err)
	}
	t := &catalog.TypeDescriptor{
		Name:     d.Name,
		Symbol:   v,
		InPorts:  in,
		OutPorts: out,
	}
	if err := u.Local.Add(t); err != nil {
		return diagf(TypeNotFound, u.Path, d.Pos, "Couldn't register type '%s': %v", d.Name, err)
	}
	u.Metatypes = append(u.Metatypes, MetatypeDecl{
		Name:     d.Name,
		Kind:     d.Kind,
		Contents: d.Contents,
		FuncName: "new" + c.stem(d.Name, u.ID) + "Type",
		Pos:      d.Pos,
	})
	return nil
}

// findFile looks name up in the search paths, then in the directory of the
// root input.
func (c *Context) findFile(name string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}
	dirs := append(append([]string(nil), c.cfg.SearchPaths...), c.rootDir)
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if isFile(p) {
			return p, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ─── type synthesis ───────────────────────────────────────────────────────────

// synthesizeType builds the type a unit exposes: one port per export and
// one option per exported option.
func synthesizeType(u *Unit) *catalog.TypeDescriptor {
	t := &catalog.TypeDescriptor{
		Name:             u.Name,
		Symbol:           localTypeVar(u.Name),
		GeneratedOptions: true,
	}
	t.InPorts = synthesizePorts(u, In)
	t.OutPorts = synthesizePorts(u, Out)
	for _, o := range u.Graph.Options {
		b := u.Bindings[o.Node]
		idx := b.Type.FindOption(o.NodeOption)
		desc := b.Type.Options[idx]
		val := desc.Default
		if opts := u.Options[o.Node]; opts != nil {
			val = opts[idx].Value
		}
		t.Options = append(t.Options, catalog.OptionDescriptor{Name: o.Name, DataType: desc.DataType, Default: val})
	}
	if len(t.Options) > 0 {
		t.OptionsSymbol = u.Stem + "Options"
	}
	return t
}

func synthesizePorts(u *Unit, dir Direction) []catalog.PortDescriptor {
	exports := u.Graph.ExportedIn
	if dir == Out {
		exports = u.Graph.ExportedOut
	}
	var ports []catalog.PortDescriptor
	base := 0
	for _, e := range exports {
		p, _ := lookupPort(u.Bindings[e.Node].Type, e.Port, dir)
		size := 0
		if e.Idx == fbp.NoIndex {
			size = p.ArraySize
		}
		sp := catalog.PortDescriptor{Name: e.Name, DataType: p.DataType, ArraySize: size, BasePortIdx: base}
		base += sp.Width()
		ports = append(ports, sp)
	}
	return ports
}
