package compiler_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
	"github.com/ravi-parthasarathy/fbpgen/pkg/compiler"
	"github.com/ravi-parthasarathy/fbpgen/pkg/conffile"
	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

const testCatalog = `{"types": [
  {"name": "timer", "symbol": "example.com/nodes/timer.Type", "options_symbol": "example.com/nodes/timer.Options",
   "in_ports": [{"name": "IN", "data_type": "boolean"}],
   "out_ports": [{"name": "OUT", "data_type": "int"}, {"name": "tick", "data_type": "empty", "base_port_idx": 1}],
   "options": {"members": [
     {"name": "interval", "data_type": "int", "default": {"val": 1000, "min": 0, "max": "INT32_MAX", "step": 1}},
     {"name": "label", "data_type": "string", "default": "tick"}]}},
  {"name": "console", "symbol": "example.com/nodes/console.Type",
   "in_ports": [{"name": "in", "data_type": "any"}, {"name": "IN", "data_type": "any", "base_port_idx": 1}]},
  {"name": "adder", "symbol": "example.com/nodes/adder.Type",
   "in_ports": [{"name": "IN", "data_type": "int", "array_size": 4}],
   "out_ports": [{"name": "OUT", "data_type": "int"}]},
  {"name": "fanout", "symbol": "example.com/nodes/fanout.Type",
   "in_ports": [{"name": "IN", "data_type": "int"}],
   "out_ports": [{"name": "LOW", "data_type": "int", "array_size": 5}, {"name": "OUT", "data_type": "int", "array_size": 3, "base_port_idx": 5}]},
  {"name": "logger", "symbol": "example.com/nodes/logger.Type",
   "in_ports": [{"name": "IN", "data_type": "string"}],
   "out_ports": [{"name": "ERROR", "data_type": "string"}]},
  {"name": "led", "symbol": "example.com/nodes/led.Type", "options_symbol": "example.com/nodes/led.Options",
   "in_ports": [{"name": "IN", "data_type": "rgb"}],
   "options": {"members": [
     {"name": "color", "data_type": "rgb", "default": {"red": 0, "green": 0, "blue": 0, "red_max": 255, "green_max": 255, "blue_max": 255}},
     {"name": "direction", "data_type": "direction-vector"},
     {"name": "gain", "data_type": "float", "default": {"val": 1.0, "min": 0, "max": "DBL_MAX", "step": 0.1}},
     {"name": "enabled", "data_type": "boolean", "default": true}]}}
]}`

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	require.NoError(t, c.Load(strings.NewReader(testCatalog), "test.json"))
	require.Empty(t, c.Rejected())
	return c
}

func compileSource(t *testing.T, cfg compiler.Config, src string) (*compiler.Context, *compiler.Unit, error) {
	t.Helper()
	if cfg.Common == nil {
		cfg.Common = loadCatalog(t)
	}
	ctx := compiler.NewContext(cfg)
	u, err := ctx.CompileSource(filepath.Join(t.TempDir(), "main.fbp"), src)
	return ctx, u, err
}

func requireKind(t *testing.T, err error, kind compiler.Kind) *compiler.Diagnostic {
	t.Helper()
	require.Error(t, err)
	var d *compiler.Diagnostic
	require.True(t, errors.As(err, &d), "error %v is not a Diagnostic", err)
	require.Equal(t, kind, d.Kind, "diagnostic: %v", d)
	return d
}

// ─── connections ──────────────────────────────────────────────────────────────

func TestScenarioA_SingleConnection(t *testing.T) {
	_, u, err := compileSource(t, compiler.Config{}, "A(timer) tick -> in B(console)")
	require.NoError(t, err)
	want := []compiler.ConnectionRow{{SrcNode: 0, SrcPort: 1, DstNode: 1, DstPort: 0}}
	if !reflect.DeepEqual(u.Conns, want) {
		t.Errorf("conns = %+v, want %+v", u.Conns, want)
	}
}

func TestScenarioB_ArrayIndexRequired(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "A(timer)\nA OUT -> IN S(adder)")
	d := requireKind(t, err, compiler.ArrayIndexRequired)
	assert.Equal(t, fbp.Position{Line: 2, Column: 3}, d.Pos)
	assert.Contains(t, d.Error(), "main.fbp:2:3: Port 'IN' from node type 'adder' is an array port and no index was given")
}

func TestArrayIndexOutOfBounds(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "A(timer) OUT -> IN[4] S(adder)")
	requireKind(t, err, compiler.ArrayIndexOutOfBounds)

	_, u, err := compileSource(t, compiler.Config{}, "A(timer) OUT -> IN[3] S(adder)")
	require.NoError(t, err)
	assert.Equal(t, 3, u.Conns[0].DstPort)
}

func TestScenarioD_WholeArrayExport(t *testing.T) {
	_, u, err := compileSource(t, compiler.Config{}, "OUTPORT=f.OUT:ALL\nf(fanout)")
	require.NoError(t, err)
	want := []compiler.PortSpecRow{{Node: 0, Port: 5}, {Node: 0, Port: 6}, {Node: 0, Port: 7}}
	if !reflect.DeepEqual(u.ExportedOut, want) {
		t.Errorf("exported out = %+v, want %+v", u.ExportedOut, want)
	}
	require.Len(t, u.Type.OutPorts, 1)
	assert.Equal(t, 3, u.Type.OutPorts[0].ArraySize)
}

func TestIndexedExportIsScalar(t *testing.T) {
	_, u, err := compileSource(t, compiler.Config{}, "OUTPORT=f.OUT[2]:ONE\nOUTPORT=f.LOW:REST\nINPORT=s.IN[1]:X\nf(fanout)\ns(adder)")
	require.NoError(t, err)
	assert.Equal(t, []compiler.PortSpecRow{{Node: 0, Port: 7}, {0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}}, u.ExportedOut)
	assert.Equal(t, []compiler.PortSpecRow{{Node: 1, Port: 1}}, u.ExportedIn)
	out := u.Type.OutPorts
	require.Len(t, out, 2)
	assert.Equal(t, catalog.PortDescriptor{Name: "ONE", DataType: "int", ArraySize: 0, BasePortIdx: 0}, out[0])
	assert.Equal(t, catalog.PortDescriptor{Name: "REST", DataType: "int", ArraySize: 5, BasePortIdx: 1}, out[1])

	_, _, err = compileSource(t, compiler.Config{}, "OUTPORT=f.OUT[3]:BAD\nf(fanout)")
	requireKind(t, err, compiler.ArrayIndexOutOfBounds)
	_, _, err = compileSource(t, compiler.Config{}, "OUTPORT=f.NOPE:BAD\nf(fanout)")
	requireKind(t, err, compiler.PortNotFound)
}

func TestConnectionsSortedAndStable(t *testing.T) {
	src := `s(adder)
f(fanout) OUT[2] -> IN[0] s
t(timer) OUT -> IN[1] s
f OUT[0] -> IN[2] s
f LOW[1] -> IN[3] s
f OUT[0] -> IN f2(fanout)`
	_, u, err := compileSource(t, compiler.Config{}, src)
	require.NoError(t, err)
	for i := 1; i < len(u.Conns); i++ {
		a, b := u.Conns[i-1], u.Conns[i]
		if a.SrcNode > b.SrcNode || (a.SrcNode == b.SrcNode && a.SrcPort > b.SrcPort) {
			t.Fatalf("rows not sorted: %+v", u.Conns)
		}
	}
	want := []compiler.ConnectionRow{
		{SrcNode: 1, SrcPort: 1, DstNode: 0, DstPort: 3},
		{SrcNode: 1, SrcPort: 5, DstNode: 0, DstPort: 2},
		{SrcNode: 1, SrcPort: 5, DstNode: 3, DstPort: 0},
		{SrcNode: 1, SrcPort: 7, DstNode: 0, DstPort: 0},
		{SrcNode: 2, SrcPort: 0, DstNode: 0, DstPort: 1},
	}
	assert.Equal(t, want, u.Conns)
}

func TestAnyIsCompatible(t *testing.T) {
	for _, src := range []string{
		"t(timer) OUT -> IN c(console)",
		"t(timer) tick -> in c(console)",
		"l(logger) ERROR -> IN c(console)",
	} {
		_, _, err := compileSource(t, compiler.Config{}, src)
		assert.NoError(t, err, src)
	}
	assert.True(t, compiler.Compatible("any", "rgb"))
	assert.True(t, compiler.Compatible("int", "any"))
	assert.False(t, compiler.Compatible("int", "string"))
}

func TestPortTypeMismatch(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "t(timer) OUT -> IN l(logger)")
	d := requireKind(t, err, compiler.PortTypeMismatch)
	assert.Contains(t, d.Message, "Source port type 'int' doesn't match destination port type 'string'")
}

func TestPortNotFound(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "t(timer) NOPE -> IN c(console)")
	d := requireKind(t, err, compiler.PortNotFound)
	assert.Equal(t, "Port 'NOPE' doesn't exist for node type 'timer'", d.Message)
}

func TestErrorPort(t *testing.T) {
	_, u, err := compileSource(t, compiler.Config{}, "a(adder) ERROR -> IN c(console)\nOUTPORT=a.ERROR:ERR")
	require.NoError(t, err)
	assert.Equal(t, 65534, u.Conns[0].SrcPort)
	assert.Equal(t, []compiler.PortSpecRow{{Node: 0, Port: 65534}}, u.ExportedOut)
	assert.Equal(t, "error", u.Type.OutPorts[0].DataType)

	// a declared ERROR port wins over the implicit one
	_, u, err = compileSource(t, compiler.Config{}, "l(logger) ERROR -> IN c(console)")
	require.NoError(t, err)
	assert.Equal(t, 0, u.Conns[0].SrcPort)

	// the implicit port is output only
	_, _, err = compileSource(t, compiler.Config{}, "t(timer) OUT -> ERROR c(console)")
	requireKind(t, err, compiler.PortNotFound)
}

// ─── resolution ───────────────────────────────────────────────────────────────

type fakeResolver map[string][]string

func (f fakeResolver) Resolve(id string) (string, []string, error) {
	entry, ok := f[id]
	if !ok {
		return "", nil, conffile.ErrNotFound
	}
	if entry[0] == "!fail" {
		return "", nil, errors.New("backend unavailable")
	}
	return entry[0], entry[1:], nil
}

func TestResolve_TypeNotFound(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "a(nothing)")
	d := requireKind(t, err, compiler.TypeNotFound)
	assert.Equal(t, fbp.Position{Line: 1, Column: 1}, d.Pos)

	_, _, err = compileSource(t, compiler.Config{Resolver: fakeResolver{}}, "\n  a(nothing)")
	d = requireKind(t, err, compiler.TypeNotFound)
	assert.Equal(t, fbp.Position{Line: 2, Column: 3}, d.Pos)

	_, _, err = compileSource(t, compiler.Config{Resolver: fakeResolver{"Broken": {"!fail"}}}, "a(Broken)")
	requireKind(t, err, compiler.IndirectionFailure)

	_, _, err = compileSource(t, compiler.Config{Resolver: fakeResolver{"Dangling": {"nothing"}}}, "a(Dangling)")
	requireKind(t, err, compiler.TypeNotFound)
}

func TestResolve_ConffileDefaultsNeverOverrideExplicit(t *testing.T) {
	res := fakeResolver{"Beat": {"timer", "interval=250", "label=\"from conf\"", "broken"}}
	ctx, u, err := compileSource(t, compiler.Config{Resolver: res}, "b(Beat:interval=10)")
	require.NoError(t, err)
	b := u.Bindings[0]
	assert.Equal(t, "timer", b.Type.Name)
	assert.Equal(t, compiler.RoleExternal, b.Role)
	require.Len(t, b.Meta, 2)
	assert.Equal(t, fbp.Meta{Key: "interval", Value: "10", Pos: fbp.Position{Line: 1, Column: 8}}, b.Meta[0])
	assert.Equal(t, "label", b.Meta[1].Key)

	opts := u.Options[0]
	assert.Equal(t, catalog.RangeValue{Val: "10", Min: "0", Max: "INT32_MAX", Step: "1"}, opts[0].Value)
	assert.Equal(t, catalog.StringValue{Text: "from conf"}, opts[1].Value)

	warns := ctx.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "Couldn't handle 'broken' conffile option")
}

func TestResolve_CommonCatalogShadowsLocal(t *testing.T) {
	src := "DECLARE=console:composed-new:A(int)|B(int)\nc(console)"
	_, u, err := compileSource(t, compiler.Config{}, src)
	require.NoError(t, err)
	assert.Equal(t, compiler.RoleExternal, u.Bindings[0].Role)
	assert.Equal(t, "example.com/nodes/console.Type", u.Bindings[0].Type.Symbol)
}

func TestResolve_Metatype(t *testing.T) {
	src := "DECLARE=Pair:composed-new:A(int)|B(int)\nt(timer) OUT -> A p(Pair) OUT -> IN c(console)"
	_, u, err := compileSource(t, compiler.Config{}, src)
	require.NoError(t, err)
	assert.Equal(t, compiler.RoleMetatype, u.Bindings[1].Role)
	require.Len(t, u.Metatypes, 1)
	assert.Equal(t, "newPair0Type", u.Metatypes[0].FuncName)
	assert.Equal(t, "typePair", u.Bindings[1].Type.Symbol)

	_, _, err = compileSource(t, compiler.Config{}, "DECLARE=X:lua:whatever\nx(X)")
	requireKind(t, err, compiler.TypeNotFound)
	_, _, err = compileSource(t, compiler.Config{}, "DECLARE=X:composed-new:A(int)\nx(X)")
	requireKind(t, err, compiler.ParseFailure)
}

func TestParseFailureCarriesPosition(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "a(timer)\nb(timer) OUT IN a")
	d := requireKind(t, err, compiler.ParseFailure)
	assert.Equal(t, fbp.Position{Line: 2, Column: 14}, d.Pos)
}

// ─── options ──────────────────────────────────────────────────────────────────

func TestScenarioC_PositionalInt(t *testing.T) {
	_, u, err := compileSource(t, compiler.Config{}, "t(timer:interval=500)")
	require.NoError(t, err)
	opts := u.Options[0]
	require.Len(t, opts, 2)
	assert.Equal(t, catalog.RangeValue{Val: "500", Min: "0", Max: "INT32_MAX", Step: "1"}, opts[0].Value)
	assert.Equal(t, catalog.StringValue{Text: "tick"}, opts[1].Value)
}

func TestEncode_Forms(t *testing.T) {
	led, _ := loadCatalog(t).Find("led")
	timer, _ := loadCatalog(t).Find("timer")
	cases := []struct {
		name  string
		typ   *catalog.TypeDescriptor
		key   string
		value string
		want  catalog.Value
		warns int
	}{
		{"explicit int", timer, "interval", "max:20|val:5", catalog.RangeValue{Val: "5", Min: "0", Max: "20", Step: "1"}, 0},
		{"positional int", timer, "interval", "5|1|9", catalog.RangeValue{Val: "5", Min: "1", Max: "9", Step: "1"}, 0},
		{"int limit", timer, "interval", "min:-INT32_MAX", catalog.RangeValue{Val: "1000", Min: "-INT32_MAX", Max: "INT32_MAX", Step: "1"}, 0},
		{"quoted int", timer, "interval", `"7"`, catalog.RangeValue{Val: "7", Min: "0", Max: "INT32_MAX", Step: "1"}, 0},
		{"mixed explicit", timer, "interval", "val:5|9", catalog.RangeValue{Val: "5", Min: "0", Max: "INT32_MAX", Step: "1"}, 1},
		{"mixed positional", timer, "interval", "5|max:9", catalog.RangeValue{Val: "5", Min: "0", Max: "INT32_MAX", Step: "1"}, 1},
		{"too many", timer, "interval", "1|2|3|4|5", catalog.RangeValue{Val: "1", Min: "2", Max: "3", Step: "4"}, 1},
		{"unknown field", timer, "interval", "val:3|red:4", catalog.RangeValue{Val: "3", Min: "0", Max: "INT32_MAX", Step: "1"}, 1},
		{"overflow", timer, "interval", "99999999999", catalog.RangeValue{Val: "1000", Min: "0", Max: "INT32_MAX", Step: "1"}, 1},
		{"string quoted", timer, "label", `"a \"b\""`, catalog.StringValue{Text: `a "b"`}, 0},
		{"string bare", timer, "label", "plain", catalog.StringValue{Text: "plain"}, 0},
		{"float nan", led, "gain", "NaN|0|INF", catalog.RangeValue{Val: "nan", Min: "0", Max: "inf", Step: "0.1"}, 0},
		{"float negative inf", led, "gain", "val:-Inf", catalog.RangeValue{Val: "-inf", Min: "0", Max: "DBL_MAX", Step: "0.1"}, 0},
		{"rgb", led, "color", "green:128|red_max:100", catalog.RGBValue{Red: "0", Green: "128", Blue: "0", RedMax: "100", GreenMax: "255", BlueMax: "255"}, 0},
		{"rgb negative", led, "color", "-1", catalog.RGBValue{Red: "0", Green: "0", Blue: "0", RedMax: "255", GreenMax: "255", BlueMax: "255"}, 1},
		{"vector", led, "direction", "1|2.5|-3", catalog.DirectionVectorValue{X: "1", Y: "2.5", Z: "-3"}, 0},
		{"boolean passthrough", led, "enabled", "false", catalog.StringValue{Text: "false"}, 0},
		{"boolean invalid", led, "enabled", "yes", catalog.StringValue{Text: "true"}, 1},
		{"boolean quoted invalid", led, "enabled", `"on"`, catalog.StringValue{Text: "true"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := []fbp.Meta{{Key: tc.key, Value: tc.value, Pos: fbp.Position{Line: 3, Column: 4}}}
			opts, warns, err := compiler.Encode("x.fbp", meta, tc.typ)
			require.NoError(t, err)
			idx := tc.typ.FindOption(tc.key)
			assert.Equal(t, tc.want, opts[idx].Value)
			assert.Len(t, warns, tc.warns)
			for _, w := range warns {
				assert.Equal(t, compiler.MalformedSuboption, w.Kind)
				assert.Equal(t, fbp.Position{Line: 3, Column: 4}, w.Pos)
			}
		})
	}
}

func TestEncode_InvalidOptionKey(t *testing.T) {
	_, _, err := compileSource(t, compiler.Config{}, "t(timer:interval=1,speed=3)")
	d := requireKind(t, err, compiler.InvalidOptionKey)
	assert.Equal(t, fbp.Position{Line: 1, Column: 20}, d.Pos)

	_, _, err = compileSource(t, compiler.Config{}, "c(console:x=1)")
	requireKind(t, err, compiler.InvalidOptionKey)
}

func TestEncode_MalformedSuboptionIsRecoverable(t *testing.T) {
	ctx, u, err := compileSource(t, compiler.Config{}, "t(timer:interval=val:4|7)")
	require.NoError(t, err)
	assert.Equal(t, "4", u.Options[0][0].Value.(catalog.RangeValue).Val)
	warns := ctx.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Error(), "Wrong suboption format, ignoring value '7'")
}

// ─── subflows ─────────────────────────────────────────────────────────────────

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSubflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blink.fbp", `INPORT=t.IN:ENABLE
OUTPORT=t.OUT:TICK
OPTION=t.interval:period
t(timer:interval=250)`)
	main := writeFile(t, dir, "main.fbp", `DECLARE=Blinker:fbp:blink.fbp
b(Blinker:period=100) TICK -> IN c(console)
b2(Blinker)`)

	ctx := compiler.NewContext(compiler.Config{Common: loadCatalog(t)})
	root, err := ctx.CompileFile(main)
	require.NoError(t, err)

	units := ctx.Units()
	require.Len(t, units, 2)
	assert.Equal(t, compiler.UnitID(0), root.ID)
	assert.Equal(t, "main", root.Name)
	child := ctx.Unit(1)
	assert.Equal(t, "Blinker", child.Name)
	assert.Equal(t, compiler.UnitID(0), child.Parent)
	assert.Equal(t, "createBlinker1Type", child.FuncName)

	typ := child.Type
	assert.Equal(t, []catalog.PortDescriptor{{Name: "ENABLE", DataType: "boolean"}}, typ.InPorts)
	assert.Equal(t, []catalog.PortDescriptor{{Name: "TICK", DataType: "int"}}, typ.OutPorts)
	require.Len(t, typ.Options, 1)
	assert.Equal(t, "period", typ.Options[0].Name)
	assert.Equal(t, catalog.RangeValue{Val: "250", Min: "0", Max: "INT32_MAX", Step: "1"}, typ.Options[0].Default)
	assert.Equal(t, "Blinker1Options", typ.OptionsSymbol)
	assert.True(t, typ.GeneratedOptions)
	assert.Equal(t, []compiler.ForwardingRow{{ChildIndex: 0, ChildField: "interval", ParentField: "opt_period"}}, child.Forwarding)

	local, ok := root.Local.Find("Blinker")
	require.True(t, ok)
	assert.Equal(t, "typeBlinker", local.Symbol)
	assert.Equal(t, compiler.RoleSubflow, root.Bindings[0].Role)
	assert.Equal(t, catalog.RangeValue{Val: "100", Min: "0", Max: "INT32_MAX", Step: "1"}, root.Options[0][0].Value)
	assert.Nil(t, root.Options[2], "no meta and no forwarding: no literal")
	assert.Equal(t, []compiler.ConnectionRow{{SrcNode: 0, SrcPort: 0, DstNode: 1, DstPort: 1}}, root.Conns)

	ext := ctx.ExternalTypes()
	require.Len(t, ext, 2)
	assert.Equal(t, "console", ext[0].Name)
	assert.Equal(t, "timer", ext[1].Name)
}

func TestSubflow_GeneratedNamesAreUnique(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub.fbp", "OUTPORT=t.OUT:OUT\nOPTION=t.interval:period\nt(timer)")
	var src strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&src, "DECLARE=s%d:fbp:sub.fbp\n", i)
	}
	src.WriteString("DECLARE=s:fbp:sub.fbp\nDECLARE=a-b:fbp:sub.fbp\nDECLARE=a_b:composed-new:A(int)|B(int)\n")
	src.WriteString("x(a-b) OUT -> A y(a_b)\n")
	main := writeFile(t, dir, "main.fbp", src.String())

	ctx := compiler.NewContext(compiler.Config{Common: loadCatalog(t)})
	root, err := ctx.CompileFile(main)
	require.NoError(t, err)

	// s1 is unit 1 and s is unit 11: both stem to S11.
	assert.Equal(t, "S11", ctx.Unit(1).Stem)
	assert.Equal(t, "S11_2", ctx.Unit(11).Stem)
	assert.Equal(t, "createS11_2Type", ctx.Unit(11).FuncName)
	assert.Equal(t, "S11_2Options", ctx.Unit(11).Type.OptionsSymbol)

	funcs := make(map[string]bool)
	for _, u := range ctx.Units() {
		assert.False(t, funcs[u.FuncName], "duplicate %s", u.FuncName)
		funcs[u.FuncName] = true
	}

	assert.Equal(t, "typeAB", root.Bindings[0].Type.Symbol)
	assert.Equal(t, "typeAB_2", root.Bindings[1].Type.Symbol)
	assert.Equal(t, "newAB0Type", root.Metatypes[0].FuncName)
}

func TestSubflow_SearchPaths(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "inner.fbp", "OUTPORT=t.OUT:OUT\nt(timer)")
	root := t.TempDir()
	writeFile(t, root, "inner.fbp", "OUTPORT=t.tick:OUT\nt(timer)")
	main := writeFile(t, root, "main.fbp", "DECLARE=Inner:fbp:inner.fbp\ni(Inner)")

	ctx := compiler.NewContext(compiler.Config{Common: loadCatalog(t), SearchPaths: []string{lib}})
	_, err := ctx.CompileFile(main)
	require.NoError(t, err)
	assert.Equal(t, "int", ctx.Unit(1).Type.OutPorts[0].DataType, "search path must win over the root directory")
}

func TestSubflow_Errors(t *testing.T) {
	dir := t.TempDir()
	self := writeFile(t, dir, "self.fbp", "DECLARE=Self:fbp:self.fbp\ns(Self)")
	writeFile(t, dir, "a.fbp", "DECLARE=B:fbp:b.fbp\nb(B)")
	writeFile(t, dir, "b.fbp", "DECLARE=A:fbp:a.fbp\na(A)")
	missing := writeFile(t, dir, "missing.fbp", "DECLARE=M:fbp:nowhere.fbp\nm(M)")
	badOpt := writeFile(t, dir, "badopt.fbp", "OPTION=t.nope:x\nt(timer)")

	cases := map[string]compiler.Kind{
		self:                       compiler.DeclarationCycle,
		filepath.Join(dir, "a.fbp"): compiler.DeclarationCycle,
		missing:                    compiler.IOFailure,
		badOpt:                     compiler.InvalidOptionKey,
		filepath.Join(dir, "x.fbp"): compiler.IOFailure,
	}
	for path, kind := range cases {
		ctx := compiler.NewContext(compiler.Config{Common: loadCatalog(t)})
		_, err := ctx.CompileFile(path)
		requireKind(t, err, kind)
	}
}

func TestGoName(t *testing.T) {
	for in, want := range map[string]string{
		"red_max":     "RedMax",
		"opt_period":  "OptPeriod",
		"my-flow.fbp": "MyFlowFbp",
		"Blinker":     "Blinker",
		"2d":          "X2d",
	} {
		if got := compiler.GoName(in); got != want {
			t.Errorf("GoName(%q) = %q, want %q", in, got, want)
		}
	}
}
