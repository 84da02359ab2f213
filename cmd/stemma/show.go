// Show command for the stemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/resolve"
)

var showCmd = &cobra.Command{
	Use:   "show <target>",
	Short: "Display an artefact with full details",
	Long: `Show resolves a target to an artefact and prints it. The target may be
a file path, a DNA token, or a stored path of a file that no longer
exists. Resolving an on-disk file heals moved paths and missing
sidecars but never creates versions; use tag for that.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if showFlagForce {
			// Overwrites mutate identity state and belong to tag.
			fmt.Fprintln(os.Stderr, "show: --force-overwrite is not available here, use: stemma tag --force-overwrite")
			os.Exit(exitUserError)
		}

		store, err := openStore(true)
		if err != nil {
			fail("show", err)
		}
		defer store.Close()

		engine := newEngine(store)
		art, _, err := engine.ResolveTarget(args[0], resolve.ResolveOptions{})
		if err != nil {
			fail("show", err)
		}
		printArtefact(store, art)
		return nil
	},
}

var showFlagForce bool

func init() {
	showCmd.Flags().BoolVar(&showFlagForce, "force-overwrite", false, "not available in show; use tag")
}
