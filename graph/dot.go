package graph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteDOT writes the graph in Graphviz format. Nodes in a cycle group are
// clustered and indirect edges are dashed; c may be nil.
func (g *Graph) WriteDOT(w io.Writer, c *Cycles) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph schemas {")
	fmt.Fprintln(bw, "\trankdir=LR;")
	fmt.Fprintln(bw, "\tnode [shape=box];")
	grouped := map[SchemaID]bool{}
	if c != nil {
		for _, grp := range c.Groups() {
			fmt.Fprintf(bw, "\tsubgraph cluster_%d {\n\t\tstyle=dashed;\n", grp.ID)
			for _, m := range grp.Members {
				grouped[m] = true
				writeDOTNode(bw, g.byID[m], "\t\t")
			}
			fmt.Fprintln(bw, "\t}")
		}
	}
	for _, n := range g.nodes {
		if !grouped[n.ID] {
			writeDOTNode(bw, n, "\t")
		}
	}
	for _, e := range g.edges {
		attrs := "label=" + strconv.Quote(e.Kind.String()+e.Path)
		if c != nil && c.IsIndirect(e) {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(bw, "\t%s -> %s [%s];\n", strconv.Quote(string(e.From)), strconv.Quote(string(e.To)), attrs)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func writeDOTNode(w io.Writer, n *Node, indent string) {
	fmt.Fprintf(w, "%s%s [label=%s];\n", indent, strconv.Quote(string(n.ID)), strconv.Quote(n.Name))
}
