package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

func graphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph <input.fbp>",
		Short: "Print a parsed flow as a text summary or DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			src, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			g, err := fbp.Parse(string(src))
			if err != nil {
				return fmt.Errorf("%s:%w", input, err)
			}

			switch strings.ToLower(format) {
			case "dot":
				out, err := renderDOT(g)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			case "text", "":
				fmt.Fprint(cmd.OutOrStdout(), renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// flowOrder returns node indices in BFS order from the nodes that have no
// incoming connection; nodes not reached that way follow in declaration
// order.
func flowOrder(g *fbp.Graph) []int {
	incoming := make([]bool, len(g.Nodes))
	for _, c := range g.Conns {
		incoming[c.Dst] = true
	}

	visited := make([]bool, len(g.Nodes))
	var order, queue []int
	for i := range g.Nodes {
		if !incoming[i] {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		for _, c := range g.OutgoingConns(cur) {
			if !visited[c.Dst] {
				queue = append(queue, c.Dst)
			}
		}
	}
	for i := range g.Nodes {
		if !visited[i] {
			order = append(order, i)
		}
	}
	return order
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

func portLabel(port string, idx int) string {
	if idx == fbp.NoIndex {
		return port
	}
	return fmt.Sprintf("%s[%d]", port, idx)
}

func metaString(n *fbp.Node) string {
	parts := make([]string, 0, len(n.Meta))
	for _, m := range n.Meta {
		parts = append(parts, m.Key+"="+truncate(m.Value, 40))
	}
	return strings.Join(parts, " ")
}

// renderText produces the human-readable text summary.
func renderText(g *fbp.Graph) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Flow: %d nodes, %d connections\n", len(g.Nodes), len(g.Conns))

	maxNameLen := 4
	for _, n := range g.Nodes {
		if len(n.Name) > maxNameLen {
			maxNameLen = len(n.Name)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, i := range flowOrder(g) {
		n := g.Nodes[i]
		fmt.Fprintf(&sb, "  %-*s  %-16s  %s\n", maxNameLen, n.Name, n.Component, metaString(n))
	}

	fmt.Fprintf(&sb, "\nConnections:\n")
	for _, c := range g.Conns {
		fmt.Fprintf(&sb, "  %-*s  %s  →  %s  %s\n", maxNameLen,
			g.Nodes[c.Src].Name, portLabel(c.SrcPort, c.SrcIdx), portLabel(c.DstPort, c.DstIdx), g.Nodes[c.Dst].Name)
	}

	if len(g.ExportedIn)+len(g.ExportedOut) > 0 {
		fmt.Fprintf(&sb, "\nExports:\n")
		for _, e := range g.ExportedIn {
			fmt.Fprintf(&sb, "  in   %-12s  %s.%s\n", e.Name, g.Nodes[e.Node].Name, portLabel(e.Port, e.Idx))
		}
		for _, e := range g.ExportedOut {
			fmt.Fprintf(&sb, "  out  %-12s  %s.%s\n", e.Name, g.Nodes[e.Node].Name, portLabel(e.Port, e.Idx))
		}
	}
	if len(g.Declarations) > 0 {
		fmt.Fprintf(&sb, "\nDeclarations:\n")
		for _, d := range g.Declarations {
			fmt.Fprintf(&sb, "  %-12s  %-14s  %s\n", d.Name, d.Kind, d.Contents)
		}
	}
	return sb.String()
}

// renderDOT renders the flow as a DOT digraph. Nodes are labelled with
// their component, edges with their port pair.
func renderDOT(g *fbp.Graph) (string, error) {
	dot := gographviz.NewGraph()
	if err := dot.SetName("flow"); err != nil {
		return "", err
	}
	if err := dot.SetDir(true); err != nil {
		return "", err
	}
	for _, i := range flowOrder(g) {
		n := g.Nodes[i]
		attrs := map[string]string{
			"label": strconv.Quote(n.Name + "\n" + n.Component),
			"shape": "box",
		}
		if meta := metaString(n); meta != "" {
			attrs["tooltip"] = strconv.Quote(meta)
		}
		if err := dot.AddNode("flow", strconv.Quote(n.Name), attrs); err != nil {
			return "", fmt.Errorf("dot node %q: %w", n.Name, err)
		}
	}
	for _, c := range g.Conns {
		attrs := map[string]string{
			"taillabel": strconv.Quote(portLabel(c.SrcPort, c.SrcIdx)),
			"headlabel": strconv.Quote(portLabel(c.DstPort, c.DstIdx)),
		}
		src, dst := strconv.Quote(g.Nodes[c.Src].Name), strconv.Quote(g.Nodes[c.Dst].Name)
		if err := dot.AddEdge(src, dst, true, attrs); err != nil {
			return "", fmt.Errorf("dot edge %s -> %s: %w", src, dst, err)
		}
	}
	return dot.String(), nil
}
