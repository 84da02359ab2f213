// Graph command for the stemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/lineage"
	"github.com/mesh-intelligence/stemma/internal/resolve"
)

var (
	graphFlagFormat    string
	graphFlagScope     string
	graphFlagDirection string
)

var graphCmd = &cobra.Command{
	Use:   "graph <target>",
	Short: "Render the lineage graph around an artefact",
	Long: `Graph builds the lineage view from a root artefact and renders it as
mermaid or DOT text. Scope selects ancestors, descendants, or the full
connected neighborhood; output is deterministic for a given graph.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("graph", err)
		}
		defer store.Close()

		engine := newEngine(store)
		art, _, err := engine.ResolveTarget(args[0], resolve.ResolveOptions{})
		if err != nil {
			fail("graph", err)
		}

		nodes, edges, err := lineage.Build(store, art, lineage.Scope(graphFlagScope))
		if err != nil {
			fail("graph", err)
		}

		var out string
		switch graphFlagFormat {
		case "mermaid":
			out, err = lineage.FormatMermaid(nodes, edges, lineage.Direction(graphFlagDirection))
		case "dot":
			out, err = lineage.FormatDOT(nodes, edges, lineage.Direction(graphFlagDirection))
		default:
			fmt.Fprintf(os.Stderr, "graph: unknown format %q (want mermaid or dot)\n", graphFlagFormat)
			os.Exit(exitUserError)
		}
		if err != nil {
			fail("graph", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphFlagFormat, "format", "mermaid", "output format: mermaid or dot")
	graphCmd.Flags().StringVar(&graphFlagScope, "scope", string(lineage.ScopeFull), "traversal scope: ancestors, descendants, or full")
	graphCmd.Flags().StringVar(&graphFlagDirection, "direction", string(lineage.DirectionTB), "graph direction: TB or LR")
}
