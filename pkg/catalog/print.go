package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerFmt = color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt = color.New(color.FgYellow).SprintfFunc()
)

// Print writes a listing of every type in the catalog to w.
func (c *Catalog) Print(w io.Writer) {
	for i, t := range c.types {
		if i > 0 {
			fmt.Fprintln(w)
		}
		PrintType(w, t)
	}
}

// PrintType writes the ports and options of a single type to w.
func PrintType(w io.Writer, t *TypeDescriptor) {
	fmt.Fprintf(w, "%s  %s\n", headerFmt("%s", t.Name), t.Symbol)
	printPorts(w, "in", t.InPorts)
	printPorts(w, "out", t.OutPorts)
	if len(t.Options) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s  %s\n", columnFmt("options"), t.OptionsSymbol)
	for _, o := range t.Options {
		def := "-"
		if o.Default != nil {
			def = o.Default.String()
		}
		fmt.Fprintf(w, "    %-16s %-18s %s\n", o.Name, o.DataType, def)
	}
}

func printPorts(w io.Writer, dir string, ports []PortDescriptor) {
	if len(ports) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", columnFmt("%s", dir))
	for _, p := range ports {
		name := p.Name
		if p.IsArray() {
			name = fmt.Sprintf("%s[%d]", p.Name, p.ArraySize)
		}
		fmt.Fprintf(w, "    %-16s %-18s @%d\n", name, strings.TrimSpace(p.DataType), p.BasePortIdx)
	}
}
