package compiler

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/ravi-parthasarathy/fbpgen/pkg/catalog"
)

// GoName turns an FBP name such as "red_max" or "my-flow.fbp" into an
// exported Go identifier ("RedMax", "MyFlowFbp").
func GoName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
	name := inflect.Camelize(mapped)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "X" + name
	}
	return name
}

// ForwardedField is the name an exported option takes in the options struct
// of a synthesized type.
func ForwardedField(name string) string { return "opt_" + name }

// FieldName is the Go struct field holding option optName of type t.
func FieldName(t *catalog.TypeDescriptor, optName string) string {
	if t.GeneratedOptions {
		return GoName(ForwardedField(optName))
	}
	return GoName(optName)
}

// uniqueName returns name the first time it is seen and name_2, name_3 and
// so on after that. GoName never produces '_', so suffixed names cannot
// collide with plain ones.
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		return name + "_" + strconv.Itoa(n)
	}
	return name
}
