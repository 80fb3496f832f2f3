package fbp

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a syntax or consistency error in an FBP source.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parse parses an FBP source into a Graph. Statements are separated by
// newlines or commas; '#' starts a comment that runs to the end of the line.
func Parse(src string) (*Graph, error) {
	p := &parser{
		src:  src,
		line: 1,
		col:  1,
		g:    &Graph{index: make(map[string]int)},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if err := p.verify(); err != nil {
		return nil, err
	}
	return p.g, nil
}

// ─── scanner ──────────────────────────────────────────────────────────────────

type mark struct {
	off, line, col int
}

type parser struct {
	src       string
	off       int
	line, col int
	g         *Graph

	// positions of the first declaration of each entity, for duplicate
	// diagnostics
	connPos   map[Conn]Position
	declNames map[string]bool
}

func (p *parser) eof() bool { return p.off >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.off]
}

func (p *parser) peekAt(n int) byte {
	if p.off+n >= len(p.src) {
		return 0
	}
	return p.src[p.off+n]
}

func (p *parser) next() byte {
	c := p.src[p.off]
	p.off++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

func (p *parser) pos() Position { return Position{Line: p.line, Column: p.col} }
func (p *parser) save() mark    { return mark{p.off, p.line, p.col} }
func (p *parser) restore(m mark) {
	p.off, p.line, p.col = m.off, m.line, m.col
}

func (p *parser) errorf(pos Position, format string, args ...any) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace skips blanks and comments on the current line.
func (p *parser) skipSpace() error {
	for !p.eof() {
		switch c := p.peek(); c {
		case ' ', '\t':
			p.next()
		case '\r':
			if p.peekAt(1) != '\n' {
				return p.errorf(p.pos(), "Carriage return must be followed by a newline")
			}
			p.next()
		case '#':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return nil
		}
	}
	return nil
}

// skipBlank also crosses newlines; used inside a component clause.
func (p *parser) skipBlank() error {
	for {
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.peek() != '\n' {
			return nil
		}
		p.next()
	}
}

func (p *parser) atStatementEnd() bool {
	c := p.peek()
	return p.eof() || c == '\n' || c == ','
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNodeChar(c byte) bool      { return isAlnum(c) || c == '_' || c == '-' }
func isComponentChar(c byte) bool { return isNodeChar(c) || c == '/' }
func isMetaChar(c byte) bool      { return isComponentChar(c) || strings.IndexByte("|:.+", c) >= 0 }

func (p *parser) ident(accept func(byte) bool) string {
	start := p.off
	for !p.eof() && accept(p.peek()) {
		p.next()
	}
	return p.src[start:p.off]
}

func (p *parser) expect(c byte, msg string) error {
	if p.peek() != c {
		return p.errorf(p.pos(), "%s", msg)
	}
	p.next()
	return nil
}

// ─── statements ───────────────────────────────────────────────────────────────

func (p *parser) parse() error {
	for {
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.eof() {
			return nil
		}
		if c := p.peek(); c == '\n' || c == ',' {
			p.next()
			continue
		}
		if err := p.statement(); err != nil {
			return err
		}
		if err := p.skipSpace(); err != nil {
			return err
		}
		if !p.atStatementEnd() {
			return p.errorf(p.pos(), "Invalid trailing after statements.")
		}
		if !p.eof() {
			p.next()
		}
	}
}

func (p *parser) statement() error {
	m := p.save()
	word := p.ident(isNodeChar)
	if p.peek() == '=' {
		switch word {
		case "INPORT":
			p.next()
			return p.exportPort(&p.g.ExportedIn, "input")
		case "OUTPORT":
			p.next()
			return p.exportPort(&p.g.ExportedOut, "output")
		case "DECLARE":
			p.next()
			return p.declare()
		case "OPTION":
			p.next()
			return p.option()
		}
	}
	p.restore(m)
	return p.connection()
}

// connection parses a bare node or a chain "A(t) OUT -> IN B(t) OUT -> IN C".
func (p *parser) connection() error {
	src, err := p.node()
	if err != nil {
		return err
	}
	for {
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.atStatementEnd() {
			return nil
		}
		connPos := p.pos()
		srcPort, srcIdx, err := p.port()
		if err != nil {
			return err
		}
		if srcPort == "" {
			return p.errorf(connPos, "Couldn't parse statement.")
		}
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.peek() != '-' || p.peekAt(1) != '>' {
			return p.errorf(p.pos(), "Expected '->' between connection statement.")
		}
		p.next()
		p.next()
		if err := p.skipSpace(); err != nil {
			return err
		}
		dstPos := p.pos()
		dstPort, dstIdx, err := p.port()
		if err != nil {
			return err
		}
		if dstPort == "" || p.peek() == '(' {
			return p.errorf(dstPos, "Arrow symbol must appear between two port names")
		}
		if err := p.skipSpace(); err != nil {
			return err
		}
		dst, err := p.node()
		if err != nil {
			return err
		}
		c := Conn{Src: src, SrcPort: srcPort, SrcIdx: srcIdx, Dst: dst, DstPort: dstPort, DstIdx: dstIdx}
		if err := p.addConn(c, connPos); err != nil {
			return err
		}
		src = dst
	}
}

// node parses "name", "name(component)" or "name(component:k=v,...)" and
// returns the node index.
func (p *parser) node() (int, error) {
	pos := p.pos()
	name := p.ident(isNodeChar)
	if name == "" {
		return 0, p.errorf(pos, "Expected node identifier. Identifiers must contain only alphanumeric characters, '_' or '-'.")
	}
	var component string
	var meta []Meta
	if p.peek() == '(' {
		p.next()
		component = p.ident(isComponentChar)
		if p.peek() == ':' {
			p.next()
			var err error
			if meta, err = p.metaList(); err != nil {
				return 0, err
			}
		}
		if err := p.skipBlank(); err != nil {
			return 0, err
		}
		if err := p.expect(')', "Expected ')' to close the node component."); err != nil {
			return 0, err
		}
	}
	if name == "_" {
		if component == "" {
			return 0, p.errorf(pos, "Anonymous node must have a component, e.g. '_(nodetype)'")
		}
		name = fmt.Sprintf("#anon:%d:%d", pos.Line, pos.Column)
	}
	return p.addNode(name, component, meta, pos)
}

func (p *parser) metaList() ([]Meta, error) {
	var meta []Meta
	for {
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		pos := p.pos()
		key := p.ident(isMetaChar)
		if key == "" {
			return nil, p.errorf(pos, "Expected option name in node meta.")
		}
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		var value string
		if p.peek() == '=' {
			p.next()
			if err := p.skipBlank(); err != nil {
				return nil, err
			}
			if p.peek() == '"' {
				var err error
				if value, err = p.quoted(); err != nil {
					return nil, err
				}
			} else {
				value = p.ident(isMetaChar)
			}
		}
		meta = append(meta, Meta{Key: key, Value: value, Pos: pos})
		if err := p.skipBlank(); err != nil {
			return nil, err
		}
		if p.peek() != ',' {
			return meta, nil
		}
		p.next()
	}
}

// quoted scans a double-quoted string and returns it with its quotes.
func (p *parser) quoted() (string, error) {
	start := p.off
	pos := p.pos()
	p.next()
	for {
		if p.eof() || p.peek() == '\n' {
			return "", p.errorf(pos, "Unterminated string.")
		}
		c := p.next()
		switch c {
		case '"':
			return p.src[start:p.off], nil
		case '\\':
			if p.eof() {
				return "", p.errorf(pos, "Unterminated string.")
			}
			escPos := p.pos()
			if strings.IndexByte(`abfnrtv\"'`, p.next()) < 0 {
				return "", p.errorf(escPos, "Invalid escape sequence in string.")
			}
		}
	}
}

// port parses "NAME" or "NAME[idx]". An empty name means no port was found.
func (p *parser) port() (string, int, error) {
	name := p.ident(isNodeChar)
	if name == "" || p.peek() != '[' {
		return name, NoIndex, nil
	}
	idx, err := p.index()
	return name, idx, err
}

func (p *parser) index() (int, error) {
	pos := p.pos()
	p.next()
	digits := p.ident(func(c byte) bool { return c >= '0' && c <= '9' })
	if digits == "" || p.peek() != ']' {
		return 0, p.errorf(pos, "Invalid port index, expected '[<number>]'.")
	}
	p.next()
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, p.errorf(pos, "Invalid port index: %v", err)
	}
	return n, nil
}

// exportPort parses "node.port[idx]:NAME" after INPORT= or OUTPORT=.
func (p *parser) exportPort(list *[]ExportedPort, dir string) error {
	pos := p.pos()
	name := p.ident(isNodeChar)
	if name == "" {
		return p.errorf(pos, "Expected node identifier in exported port.")
	}
	if err := p.expect('.', "Expected '.' between node and port of exported port."); err != nil {
		return err
	}
	port, idx, err := p.port()
	if err != nil {
		return err
	}
	if port == "" {
		return p.errorf(p.pos(), "Expected port name in exported port.")
	}
	if err := p.expect(':', "Expected ':' before the exported port name."); err != nil {
		return err
	}
	exported := p.ident(isNodeChar)
	if exported == "" {
		return p.errorf(p.pos(), "Expected exported port name.")
	}
	node, err := p.addNode(name, "", nil, pos)
	if err != nil {
		return err
	}
	for _, e := range *list {
		if e.Name == exported {
			return p.errorf(pos, "Exported %s port with name '%s' already declared in %s", dir, exported, e.Pos)
		}
		if e.Node == node && e.Port == port && (e.Idx == idx || e.Idx == NoIndex || idx == NoIndex) {
			return p.errorf(pos, "Node '%s' and %s port '%s' already exported as '%s' declared in %s", name, dir, port, e.Name, e.Pos)
		}
	}
	*list = append(*list, ExportedPort{Node: node, Port: port, Idx: idx, Name: exported, Pos: pos})
	return nil
}

// declare parses "name:kind:contents" after DECLARE=.
func (p *parser) declare() error {
	pos := p.pos()
	name := p.ident(isNodeChar)
	if name == "" {
		return p.errorf(pos, "Expected type name in declaration.")
	}
	if err := p.expect(':', "Expected ':' after declared type name."); err != nil {
		return err
	}
	kind := p.ident(isNodeChar)
	if kind == "" {
		return p.errorf(p.pos(), "Expected declaration kind.")
	}
	if err := p.expect(':', "Expected ':' after declaration kind."); err != nil {
		return err
	}
	start := p.off
	for !p.atStatementEnd() {
		p.next()
	}
	contents := strings.TrimSpace(p.src[start:p.off])
	if contents == "" {
		return p.errorf(pos, "Expected contents for declaration '%s'.", name)
	}
	if p.declNames == nil {
		p.declNames = make(map[string]bool)
	}
	if p.declNames[name] {
		return p.errorf(pos, "Type '%s' already declared", name)
	}
	p.declNames[name] = true
	p.g.Declarations = append(p.g.Declarations, Declaration{Name: name, Kind: kind, Contents: contents, Pos: pos})
	return nil
}

// option parses "node.option:name" after OPTION=.
func (p *parser) option() error {
	pos := p.pos()
	name := p.ident(isNodeChar)
	if name == "" {
		return p.errorf(pos, "Expected node identifier in exported option.")
	}
	if err := p.expect('.', "Expected '.' between node and option name."); err != nil {
		return err
	}
	nodeOpt := p.ident(isNodeChar)
	if nodeOpt == "" {
		return p.errorf(p.pos(), "Expected node option name.")
	}
	if err := p.expect(':', "Expected ':' before the exported option name."); err != nil {
		return err
	}
	exported := p.ident(isNodeChar)
	if exported == "" {
		return p.errorf(p.pos(), "Expected exported option name.")
	}
	for _, o := range p.g.Options {
		if o.Name == exported {
			return p.errorf(pos, "Option '%s' already declared at %s", exported, o.Pos)
		}
	}
	node, err := p.addNode(name, "", nil, pos)
	if err != nil {
		return err
	}
	p.g.Options = append(p.g.Options, ExportedOption{Node: node, NodeOption: nodeOpt, Name: exported, Pos: pos})
	return nil
}

// ─── graph building ───────────────────────────────────────────────────────────

func (p *parser) addNode(name, component string, meta []Meta, pos Position) (int, error) {
	i, ok := p.g.index[name]
	if !ok {
		i = len(p.g.Nodes)
		p.g.index[name] = i
		p.g.Nodes = append(p.g.Nodes, &Node{Name: name, Pos: pos})
	}
	n := p.g.Nodes[i]
	if component != "" {
		if n.Component != "" {
			return 0, p.errorf(pos, "Node '%s' already declared with type '%s' at %s", name, n.Component, n.Pos)
		}
		n.Component = component
		n.Pos = pos
	}
	for _, m := range meta {
		for _, prev := range n.Meta {
			if prev.Key == m.Key {
				return 0, p.errorf(m.Pos, "Node '%s' option '%s' already declared at %s", name, m.Key, prev.Pos)
			}
		}
		n.Meta = append(n.Meta, m)
	}
	return i, nil
}

func (p *parser) addConn(c Conn, pos Position) error {
	if p.connPos == nil {
		p.connPos = make(map[Conn]Position)
	}
	if prev, ok := p.connPos[c]; ok {
		return p.errorf(pos, "Connection '%s %s -> %s %s' already declared at %s",
			p.g.Nodes[c.Src].Name, c.SrcPort, c.DstPort, p.g.Nodes[c.Dst].Name, prev)
	}
	p.connPos[c] = pos
	c.Pos = pos
	p.g.Conns = append(p.g.Conns, c)
	return nil
}

func (p *parser) verify() error {
	for _, n := range p.g.Nodes {
		if n.Component == "" {
			return p.errorf(n.Pos, "Node '%s' doesn't have a type, Node type must be defined. e.g. 'node(nodetype)'", n.Name)
		}
	}
	return nil
}
