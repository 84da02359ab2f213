// Link and unlink commands for the stemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/resolve"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

var (
	linkFlagFrom     []string
	linkFlagRelation string
	linkFlagReason   string

	unlinkFlagFrom     []string
	unlinkFlagRelation string
	unlinkFlagDryRun   bool
)

var linkCmd = &cobra.Command{
	Use:   "link <child>",
	Short: "Record lineage edges from parent artefacts to a child",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("link", err)
		}
		defer store.Close()

		engine := newEngine(store)
		child, parents, err := resolveChildAndParents(engine, args[0], linkFlagFrom)
		if err != nil {
			fail("link", err)
		}

		if err := engine.Link(child, parents, linkFlagRelation, linkFlagReason); err != nil {
			fail("link", err)
		}
		for _, parent := range parents {
			fmt.Printf("linked %s <- %s (%s)\n", child.DNA, parent.DNA, linkFlagRelation)
		}
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <child>",
	Short: "Remove lineage edges matching parent and relation",
	Long: `Unlink removes every edge matching (parent, child, relation) for each
given parent. Nothing matching is not an error; with --dry-run the
matches are listed without removing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("unlink", err)
		}
		defer store.Close()

		engine := newEngine(store)
		child, parents, err := resolveChildAndParents(engine, args[0], unlinkFlagFrom)
		if err != nil {
			fail("unlink", err)
		}

		removals, err := engine.Unlink(child, parents, unlinkFlagRelation, unlinkFlagDryRun)
		if err != nil {
			fail("unlink", err)
		}

		if flagJSON {
			printJSON(map[string]any{"dry_run": unlinkFlagDryRun, "removals": removals})
			return nil
		}
		if len(removals) == 0 {
			fmt.Println("no matching edges")
			return nil
		}
		verb := "removed"
		if unlinkFlagDryRun {
			verb = "would remove"
		}
		for _, r := range removals {
			fmt.Printf("%s %s <- %s (%s)\n", verb, child.DNA, r.ParentDNA, r.RelationType)
		}
		return nil
	},
}

// resolveChildAndParents resolves the child target and each --from
// parent without mutating state.
func resolveChildAndParents(engine *resolve.Engine, childTarget string, parentTargets []string) (*types.Artefact, []*types.Artefact, error) {
	if len(parentTargets) == 0 {
		fmt.Fprintln(os.Stderr, "at least one --from parent is required")
		os.Exit(exitUserError)
	}

	child, _, err := engine.ResolveTarget(childTarget, resolve.ResolveOptions{})
	if err != nil {
		return nil, nil, err
	}
	parents := make([]*types.Artefact, 0, len(parentTargets))
	for _, target := range parentTargets {
		parent, _, err := engine.ResolveTarget(target, resolve.ResolveOptions{})
		if err != nil {
			return nil, nil, err
		}
		parents = append(parents, parent)
	}
	return child, parents, nil
}

func init() {
	linkCmd.Flags().StringArrayVar(&linkFlagFrom, "from", nil, "parent artefact (repeatable)")
	linkCmd.Flags().StringVar(&linkFlagRelation, "relation", types.RelationDerivedFrom, "relation type")
	linkCmd.Flags().StringVar(&linkFlagReason, "reason", "", "reason recorded on the edge")

	unlinkCmd.Flags().StringArrayVar(&unlinkFlagFrom, "from", nil, "parent artefact (repeatable)")
	unlinkCmd.Flags().StringVar(&unlinkFlagRelation, "relation", types.RelationDerivedFrom, "relation type")
	unlinkCmd.Flags().BoolVar(&unlinkFlagDryRun, "dry-run", false, "list matches without removing")
}
