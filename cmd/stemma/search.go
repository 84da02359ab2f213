// Search command for the stemma CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/sqlite"
)

var (
	searchFlagTags    []string
	searchFlagType    string
	searchFlagProject string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "List artefacts matching tag, type, or project filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("search", err)
		}
		defer store.Close()

		results, err := newEngine(store).Search(sqlite.SearchFilter{
			Tags:      searchFlagTags,
			Type:      searchFlagType,
			ProjectID: searchFlagProject,
		})
		if err != nil {
			fail("search", err)
		}

		if flagJSON {
			printJSON(results)
			return nil
		}
		if len(results) == 0 {
			fmt.Println("no matching artefacts")
			return nil
		}
		for i := range results {
			printArtefactLine(&results[i])
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchFlagTags, "tag", nil, "match any of these tags (repeatable)")
	searchCmd.Flags().StringVar(&searchFlagType, "type", "", "match this type label")
	searchCmd.Flags().StringVar(&searchFlagProject, "project", "", "match members of this project")
}
