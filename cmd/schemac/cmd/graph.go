package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/schemac/compiler"
	"github.com/syssam/schemac/graph"
)

// Graph flags.
const (
	FlagIncoming = "in"
	FlagDepth    = "depth"
)

func newGraph() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "graph",
		Short:             "Inspect the schema reference graph",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <query>",
		Short: "Find a schema by id, path or name",
		Args:  cobra.ExactArgs(1),
		RunE: withGraph(func(cmd *cobra.Command, res *compiler.Result, args []string) error {
			n, err := find(res.Graph, args[0])
			if err != nil {
				return err
			}
			writeNodes(cmd.OutOrStdout(), []*graph.Node{n})
			return nil
		}),
	})

	refs := &cobra.Command{
		Use:   "refs <query>",
		Short: "List the references of a schema",
		Args:  cobra.ExactArgs(1),
		RunE: withGraph(func(cmd *cobra.Command, res *compiler.Result, args []string) error {
			n, err := find(res.Graph, args[0])
			if err != nil {
				return err
			}
			edges := res.Graph.RefsOut(n.ID)
			if in, _ := cmd.Flags().GetBool(FlagIncoming); in {
				edges = res.Graph.RefsIn(n.ID)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"From", "To", "Kind", "Path", "Indirect"})
			for _, e := range edges {
				t.AppendRow(table.Row{e.From, e.To, e.Kind, e.Path, res.Cycles.IsIndirect(e)})
			}
			t.Render()
			return nil
		}),
	}
	refs.Flags().Bool(FlagIncoming, false, "list incoming references instead")
	cmd.AddCommand(refs)

	closure := &cobra.Command{
		Use:   "closure <query>",
		Short: "List the transitive dependencies of a schema",
		Args:  cobra.ExactArgs(1),
		RunE: withGraph(func(cmd *cobra.Command, res *compiler.Result, args []string) error {
			n, err := find(res.Graph, args[0])
			if err != nil {
				return err
			}
			depth, _ := cmd.Flags().GetInt(FlagDepth)
			var nodes []*graph.Node
			for _, id := range res.Graph.Closure(n.ID, depth) {
				if dep, ok := res.Graph.Node(id); ok {
					nodes = append(nodes, dep)
				}
			}
			writeNodes(cmd.OutOrStdout(), nodes)
			return nil
		}),
	}
	closure.Flags().Int(FlagDepth, 0, "maximum depth; 0 is unbounded")
	cmd.AddCommand(closure)

	cmd.AddCommand(&cobra.Command{
		Use:   "kinds [kind]",
		Short: "List x-familiar-kind tags, or the schemas of one kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: withGraph(func(cmd *cobra.Command, res *compiler.Result, args []string) error {
			if len(args) == 1 {
				writeNodes(cmd.OutOrStdout(), res.Graph.ListByKind(args[0]))
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Kind", "Schemas"})
			for _, k := range res.Graph.Kinds() {
				t.AppendRow(table.Row{k, len(res.Graph.ListByKind(k))})
			}
			t.Render()
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dot",
		Short: "Write the graph in Graphviz format",
		Args:  cobra.NoArgs,
		RunE: withGraph(func(cmd *cobra.Command, res *compiler.Result, _ []string) error {
			return res.Graph.WriteDOT(cmd.OutOrStdout(), res.Cycles)
		}),
	})
	return cmd
}

// withGraph compiles the corpus before running fn.
func withGraph(fn func(*cobra.Command, *compiler.Result, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		res, _, err := compile(cmd.Context(), configFrom(cmd.Context()))
		if err != nil && (res == nil || res.Cycles == nil) {
			return err
		}
		return fn(cmd, res, args)
	}
}

func find(g *graph.Graph, query string) (*graph.Node, error) {
	n, ok := g.Resolve(query)
	if !ok {
		return nil, fmt.Errorf("no schema matches %q", query)
	}
	return n, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}

func writeNodes(w io.Writer, nodes []*graph.Node) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Path", "Name", "Kind"})
	for _, n := range nodes {
		t.AppendRow(table.Row{n.ID, n.Path, n.Name, n.Kind()})
	}
	t.Render()
}
