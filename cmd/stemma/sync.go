// Export and import commands for the stemma CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/bundle"
)

var (
	exportFlagProject string
	exportFlagOutput  string

	importFlagDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a project's lineage closure to a bundle file",
	Long: `Export serializes the project's artefacts plus everything reachable
from them along lineage edges, in both directions, so the bundle is
self-consistent: every edge endpoint it mentions is included.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFlagProject == "" {
			fmt.Fprintln(os.Stderr, "export: --project is required")
			os.Exit(exitUserError)
		}

		store, err := openStore(true)
		if err != nil {
			fail("export", err)
		}
		defer store.Close()

		b, err := bundle.Export(store, exportFlagProject)
		if err != nil {
			fail("export", err)
		}

		out := exportFlagOutput
		if out == "" {
			out = fmt.Sprintf("stemma_lineage_%s.json", exportFlagProject)
		}
		payload, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			fail("export", err)
		}
		if err := os.WriteFile(out, payload, 0o644); err != nil {
			fail("export", err)
		}

		fmt.Printf("exported %d artefact(s), %d edge(s) to %s\n", len(b.Artefacts), len(b.Edges), out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <bundle>",
	Short: "Merge a lineage bundle into the database",
	Long: `Import merges a bundle exported from another database, matching
artefacts by DNA token. Records already present are skipped, so
importing the same bundle twice changes nothing. With --dry-run the
same statistics are reported without writing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fail("import", err)
		}
		var b bundle.Bundle
		if err := json.Unmarshal(data, &b); err != nil {
			fail("import", err)
		}

		store, err := openStore(true)
		if err != nil {
			fail("import", err)
		}
		defer store.Close()

		stats, err := bundle.Import(store, &b, importFlagDryRun)
		if err != nil {
			fail("import", err)
		}

		if flagJSON {
			printJSON(stats)
			return nil
		}
		if importFlagDryRun {
			fmt.Println("dry run, nothing written")
		}
		fmt.Printf("projects:  %d new, %d existing\n", stats.ProjectsNew, stats.ProjectsExisting)
		fmt.Printf("artefacts: %d new, %d existing\n", stats.ArtefactsNew, stats.ArtefactsExisting)
		fmt.Printf("tags:      %d inserted, %d skipped\n", stats.TagsInserted, stats.TagsSkipped)
		fmt.Printf("notes:     %d inserted, %d skipped\n", stats.NotesInserted, stats.NotesSkipped)
		fmt.Printf("events:    %d inserted, %d skipped\n", stats.EventsInserted, stats.EventsSkipped)
		fmt.Printf("edges:     %d inserted, %d skipped\n", stats.EdgesInserted, stats.EdgesSkipped)
		fmt.Printf("links:     %d inserted, %d skipped\n", stats.LinksInserted, stats.LinksSkipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlagProject, "project", "", "project id to export")
	exportCmd.Flags().StringVarP(&exportFlagOutput, "output", "o", "", "output file (default stemma_lineage_<project>.json)")

	importCmd.Flags().BoolVar(&importFlagDryRun, "dry-run", false, "report statistics without writing")
}
