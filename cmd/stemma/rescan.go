// Rescan command for the stemma CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan [root]",
	Short: "Re-resolve every tracked file under a directory",
	Long: `Rescan walks the tree, resolving each regular file read-only. Moved
files get their stored path updated and missing sidecars are restored.
Untracked or unreadable files are skipped, never fatal. Root defaults
to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		store, err := openStore(true)
		if err != nil {
			fail("rescan", err)
		}
		defer store.Close()

		updated, err := newEngine(store).Rescan(root)
		if err != nil {
			fail("rescan", err)
		}

		if flagJSON {
			printJSON(map[string]any{"updated": updated})
			return nil
		}
		for _, dna := range updated {
			fmt.Println(dna)
		}
		fmt.Printf("%d artefact(s) resolved\n", len(updated))
		return nil
	},
}
