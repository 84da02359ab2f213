// Trace command for the stemma CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/resolve"
)

var traceCmd = &cobra.Command{
	Use:   "trace <target>",
	Short: "Print the ancestor tree of an artefact",
	Long: `Trace walks parent edges depth-first and prints an indented tree. A
node that appears again deeper in the walk is marked with * and not
expanded a second time, so cyclic graphs terminate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("trace", err)
		}
		defer store.Close()

		engine := newEngine(store)
		art, _, err := engine.ResolveTarget(args[0], resolve.ResolveOptions{})
		if err != nil {
			fail("trace", err)
		}

		lines, err := engine.TraceAncestors(art)
		if err != nil {
			fail("trace", err)
		}
		if flagJSON {
			printJSON(map[string]any{"root": art.DNA, "lines": lines})
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}
