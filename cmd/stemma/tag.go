// Tag command for the stemma CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/resolve"
)

var (
	tagFlagType        string
	tagFlagDescription string
	tagFlagTags        []string
	tagFlagProjects    []string
	tagFlagForce       bool
	tagFlagMode        string
)

var tagCmd = &cobra.Command{
	Use:   "tag <file>",
	Short: "Tag a file, creating or updating its artefact",
	Long: `Tag assigns a file a DNA token on first contact and routes an already
tracked file through the versioning state machine: snapshot mode (the
default) creates a new linked version on content change, wip mode
updates the hash in place under the same DNA.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("tag", err)
		}
		defer store.Close()

		engine := newEngine(store)
		art, err := engine.TagFile(args[0], resolve.TagOptions{
			Type:           tagFlagType,
			Description:    tagFlagDescription,
			Tags:           tagFlagTags,
			ProjectIDs:     tagFlagProjects,
			ForceOverwrite: tagFlagForce,
			Mode:           resolve.Mode(tagFlagMode),
		})
		if err != nil {
			fail("tag", err)
		}
		printArtefact(store, art)
		return nil
	},
}

func init() {
	tagCmd.Flags().StringVar(&tagFlagType, "type", "", "artefact type label")
	tagCmd.Flags().StringVarP(&tagFlagDescription, "description", "d", "", "artefact description")
	tagCmd.Flags().StringArrayVar(&tagFlagTags, "tag", nil, "tag to attach (repeatable)")
	tagCmd.Flags().StringArrayVar(&tagFlagProjects, "project", nil, "project to join (repeatable)")
	tagCmd.Flags().BoolVar(&tagFlagForce, "force-overwrite", false, "overwrite the stored hash in place instead of versioning")
	tagCmd.Flags().StringVar(&tagFlagMode, "mode", string(resolve.ModeSnapshot), "versioning mode: snapshot or wip")
}
