package emit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/ravi-parthasarathy/fbpgen/pkg/compiler"
	"github.com/ravi-parthasarathy/fbpgen/pkg/metatype"
)

// localNames are declared inside generated function bodies.
var localNames = []string{
	"nodes", "conns", "exportedIn", "exportedOut", "err", "t",
	"p", "o", "v", "ok", "parent", "child", "opts",
}

// fixedImports are the packages generated code imports on its own.
var fixedImports = map[string]string{
	flowPkg: "flow",
	"fmt":   "fmt",
	"math":  "math",
	"sync":  "sync",
}

// splitSymbol splits "import/path.Name" into its import path and name. ok
// is false for a bare identifier.
func splitSymbol(s string) (path, name string, ok bool) {
	slash := strings.LastIndex(s, "/")
	if dot := strings.LastIndex(s, "."); dot > 0 && dot > slash+1 && dot < len(s)-1 {
		return s[:dot], s[dot+1:], true
	}
	return "", s, false
}

// generatedNames returns every identifier the file declares, at package
// level or inside a function. sym is the accessor symbol, if any.
func (g *generator) generatedNames(sym string) map[string]bool {
	names := map[string]bool{"any": true}
	add := func(ns ...string) {
		for _, n := range ns {
			names[n] = true
		}
	}
	add(localNames...)
	add("initializeTypes", "rootNode", "startup", "shutdown", "main", "init")
	if sym != "" {
		l := lowerFirst(sym)
		add(sym, l+"Once", l+"Type", l+"Err")
	}
	for _, u := range g.ctx.Units() {
		base := lowerFirst(u.Stem)
		add(u.FuncName, base+"Defaults", base+"ChildOptions")
		if u.Type.OptionsSymbol != "" {
			add(u.Type.OptionsSymbol)
		}
		for i, b := range u.Bindings {
			add(optsVar(i))
			if b.Role != compiler.RoleExternal {
				add(b.Type.Symbol)
			}
		}
		for _, m := range u.Metatypes {
			add(m.FuncName)
			if mt, err := g.ctx.Metatypes().Get(m.Kind); err == nil {
				if d, ok := mt.(metatype.Declarer); ok {
					add(d.Declares()...)
				}
			}
		}
	}
	return names
}

// catalogSymbols returns the catalog symbols the file references.
func (g *generator) catalogSymbols() []string {
	var syms []string
	for _, u := range g.ctx.Units() {
		for i, b := range u.Bindings {
			if b.Role != compiler.RoleExternal {
				continue
			}
			syms = append(syms, b.Type.Symbol)
			if u.Options[i] != nil && b.Type.OptionsSymbol != "" {
				syms = append(syms, b.Type.OptionsSymbol)
			}
		}
	}
	return syms
}

// aliasImports names each catalog import so that no generated identifier
// shadows it. A bare symbol cannot be renamed, so one that equals a
// generated identifier is an error.
func (g *generator) aliasImports(sym string) error {
	generated := g.generatedNames(sym)
	if sym != "" {
		clean := g.generatedNames("")
		l := lowerFirst(sym)
		for _, n := range []string{sym, l + "Once", l + "Type", l + "Err"} {
			if clean[n] {
				return fmt.Errorf("emit: symbol %q collides with generated name %q", sym, n)
			}
		}
	}
	taken := make(map[string]bool)
	for _, name := range fixedImports {
		taken[name] = true
	}
	aliased := make(map[string]bool)
	for _, s := range g.catalogSymbols() {
		path, name, ok := splitSymbol(s)
		if !ok {
			if generated[name] {
				return fmt.Errorf("emit: catalog symbol %q collides with a generated name", s)
			}
			continue
		}
		if _, fixed := fixedImports[path]; fixed || aliased[path] {
			continue
		}
		aliased[path] = true
		base := importName(path)
		alias := base
		for i := 1; generated[alias] || taken[alias] || jen.IsReservedWord(alias); i++ {
			alias = base + strconv.Itoa(i)
		}
		taken[alias] = true
		g.file.ImportAlias(path, alias)
	}
	return nil
}

// importName is the name jennifer would pick for path on its own.
func importName(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	name := strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(path))
	name = strings.TrimLeftFunc(name, unicode.IsDigit)
	if name == "" {
		name = "pkg"
	}
	return name
}
