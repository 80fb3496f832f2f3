package fbp_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

// ─── Parser tests ─────────────────────────────────────────────────────────────

func TestParse_MinimalConnection(t *testing.T) {
	g, err := fbp.Parse("A(timer) OUT -> IN B(console)\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(g.Nodes))
	}
	if g.Nodes[0].Name != "A" || g.Nodes[0].Component != "timer" {
		t.Errorf("node 0 = %+v", g.Nodes[0])
	}
	if len(g.Conns) != 1 {
		t.Fatalf("conns = %d, want 1", len(g.Conns))
	}
	c := g.Conns[0]
	if c.Src != 0 || c.SrcPort != "OUT" || c.SrcIdx != fbp.NoIndex || c.Dst != 1 || c.DstPort != "IN" {
		t.Errorf("conn = %+v", c)
	}
	if c.Pos != (fbp.Position{Line: 1, Column: 10}) {
		t.Errorf("conn pos = %v, want 1:10", c.Pos)
	}
}

func TestParse_ChainAndIndices(t *testing.T) {
	src := `# a chain
A(timer) OUT -> IN[2] B(adder) OUT -> IN C(console), B OUT -> IN[0] B`
	g, err := fbp.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Conns) != 3 {
		t.Fatalf("conns = %d, want 3", len(g.Conns))
	}
	if g.Conns[0].DstIdx != 2 {
		t.Errorf("dst idx = %d, want 2", g.Conns[0].DstIdx)
	}
	if g.Conns[1].Src != 1 || g.Conns[1].Dst != 2 {
		t.Errorf("chain conn = %+v", g.Conns[1])
	}
	if g.Conns[2].Src != 1 || g.Conns[2].Dst != 1 || g.Conns[2].DstIdx != 0 {
		t.Errorf("self conn = %+v", g.Conns[2])
	}
}

func TestParse_Meta(t *testing.T) {
	src := `t(timer:interval=val:10|min:0, label="hi \"there\"", enabled)`
	g, err := fbp.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := g.Nodes[0]
	if len(n.Meta) != 3 {
		t.Fatalf("meta = %+v", n.Meta)
	}
	if v, _ := n.MetaValue("interval"); v != "val:10|min:0" {
		t.Errorf("interval = %q", v)
	}
	if v, _ := n.MetaValue("label"); v != `"hi \"there\""` {
		t.Errorf("label = %q", v)
	}
	if v, ok := n.MetaValue("enabled"); !ok || v != "" {
		t.Errorf("enabled = %q, %v", v, ok)
	}
}

func TestParse_DeclarationsExportsOptions(t *testing.T) {
	src := `DECLARE=Blinker:fbp:blink.fbp
DECLARE=Pair:composed-new:A(int)|B(string)
INPORT=t.IN:ENABLE
OUTPORT=sum.OUT[1]:RESULT
OPTION=t.interval:period
t(timer) OUT -> IN[0] sum(adder)`
	g, err := fbp.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Declarations) != 2 {
		t.Fatalf("declarations = %+v", g.Declarations)
	}
	if d := g.Declarations[1]; d.Name != "Pair" || d.Kind != "composed-new" || d.Contents != "A(int)|B(string)" {
		t.Errorf("declaration = %+v", d)
	}
	if len(g.ExportedIn) != 1 || g.ExportedIn[0].Name != "ENABLE" || g.ExportedIn[0].Idx != fbp.NoIndex {
		t.Errorf("exported in = %+v", g.ExportedIn)
	}
	if len(g.ExportedOut) != 1 || g.ExportedOut[0].Idx != 1 {
		t.Errorf("exported out = %+v", g.ExportedOut)
	}
	if len(g.Options) != 1 || g.Options[0].NodeOption != "interval" || g.Options[0].Name != "period" {
		t.Errorf("options = %+v", g.Options)
	}
	if i, ok := g.NodeIndex("t"); !ok || g.ExportedIn[0].Node != i {
		t.Errorf("exported node index = %d", g.ExportedIn[0].Node)
	}
}

func TestParse_AnonymousNode(t *testing.T) {
	g, err := fbp.Parse("A(timer) OUT -> IN _(console)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Nodes[1].Name != "#anon:1:20" {
		t.Errorf("anon name = %q", g.Nodes[1].Name)
	}
}

func TestParse_ReferenceThenType(t *testing.T) {
	g, err := fbp.Parse("A OUT -> IN B\nA(timer)\nB(console)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Nodes[0].Component != "timer" || g.Nodes[0].Pos.Line != 2 {
		t.Errorf("A = %+v", g.Nodes[0])
	}
}

func TestParse_CRLF(t *testing.T) {
	if _, err := fbp.Parse("A(timer) OUT -> IN B(console)\r\n"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := fbp.Parse("A(timer)\r B(console)"); err == nil {
		t.Fatal("expected error for lone carriage return")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
		pos  fbp.Position
	}{
		{"retyped node", "A(timer)\nA(console)", "Node 'A' already declared with type 'timer' at 1:1", fbp.Position{Line: 2, Column: 1}},
		{"duplicate conn", "A(t) OUT -> IN B(c)\nA OUT -> IN B", "already declared at 1:6", fbp.Position{Line: 2, Column: 3}},
		{"duplicate meta", "A(t:x=1)\nA(:x=2)", "Node 'A' option 'x' already declared at 1:5", fbp.Position{Line: 2, Column: 4}},
		{"untyped node", "A(t) OUT -> IN B", "Node 'B' doesn't have a type", fbp.Position{Line: 1, Column: 16}},
		{"missing arrow", "A(t) OUT IN B(c)", "Expected '->' between connection statement.", fbp.Position{Line: 1, Column: 10}},
		{"missing dst port", "A(t) OUT -> B(c)", "Arrow symbol must appear", fbp.Position{Line: 1, Column: 13}},
		{"anon without type", "_ OUT -> IN B(c)", "Anonymous node", fbp.Position{Line: 1, Column: 1}},
		{"duplicate export", "INPORT=a.IN:X\nINPORT=b.IN:X\na(t)\nb(t)", "Exported input port with name 'X' already declared in 1:8", fbp.Position{Line: 2, Column: 8}},
		{"port exported twice", "OUTPORT=a.OUT[1]:X\nOUTPORT=a.OUT:Y\na(t)", "Node 'a' and output port 'OUT' already exported as 'X'", fbp.Position{Line: 2, Column: 9}},
		{"duplicate declaration", "DECLARE=T:fbp:a.fbp\nDECLARE=T:fbp:b.fbp", "Type 'T' already declared", fbp.Position{Line: 2, Column: 9}},
		{"duplicate option", "OPTION=a.x:o\nOPTION=a.y:o\na(t)", "Option 'o' already declared at 1:8", fbp.Position{Line: 2, Column: 8}},
		{"bad escape", `A(t:s="\q")`, "Invalid escape sequence", fbp.Position{Line: 1, Column: 9}},
		{"trailing", "A(t) )", "Couldn't parse statement.", fbp.Position{Line: 1, Column: 6}},
		{"bad index", "A(t) OUT[x] -> IN B(c)", "Invalid port index", fbp.Position{Line: 1, Column: 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fbp.Parse(tc.src)
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *fbp.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if !strings.Contains(pe.Msg, tc.want) {
				t.Errorf("msg = %q, want substring %q", pe.Msg, tc.want)
			}
			if pe.Pos != tc.pos {
				t.Errorf("pos = %v, want %v", pe.Pos, tc.pos)
			}
		})
	}
}
