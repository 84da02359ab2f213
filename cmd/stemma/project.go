// Project commands for the stemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectAddFlagName        string
	projectAddFlagDescription string

	projectDeleteFlagPurge  bool
	projectDeleteFlagDryRun bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectAddFlagName == "" {
			fmt.Fprintln(os.Stderr, "project add: --name is required")
			os.Exit(exitUserError)
		}

		store, err := openStore(true)
		if err != nil {
			fail("project add", err)
		}
		defer store.Close()

		project, err := store.CreateProject(args[0], projectAddFlagName, projectAddFlagDescription)
		if err != nil {
			fail("project add", err)
		}
		fmt.Printf("created project %s (%s)\n", project.ID, project.Name)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Display a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("project show", err)
		}
		defer store.Close()

		project, err := store.ProjectByID(args[0])
		if err != nil {
			fail("project show", err)
		}
		members, err := store.ProjectMemberIDs(project.ID)
		if err != nil {
			fail("project show", err)
		}

		if flagJSON {
			printJSON(map[string]any{"project": project, "artefact_count": len(members)})
			return nil
		}
		fmt.Printf("ID:          %s\n", project.ID)
		fmt.Printf("Name:        %s\n", project.Name)
		if project.Description != "" {
			fmt.Printf("Description: %s\n", project.Description)
		}
		fmt.Printf("Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Artefacts:   %d\n", len(members))
		return nil
	},
}

var projectFilesCmd = &cobra.Command{
	Use:   "files <id>",
	Short: "List a project's artefacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("project files", err)
		}
		defer store.Close()

		// Surface unknown project ids before an empty listing would.
		if _, err := store.ProjectByID(args[0]); err != nil {
			fail("project files", err)
		}
		artefacts, err := store.ProjectArtefacts(args[0])
		if err != nil {
			fail("project files", err)
		}

		if flagJSON {
			printJSON(artefacts)
			return nil
		}
		for i := range artefacts {
			printArtefactLine(&artefacts[i])
		}
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("project list", err)
		}
		defer store.Close()

		projects, err := store.ListAllProjects()
		if err != nil {
			fail("project list", err)
		}

		if flagJSON {
			printJSON(projects)
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%-20s %s\n", p.ID, p.Name)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Long: `Delete removes the project; artefact rows persist and only their
membership links go away. With --purge-sidecars the sidecar files of
artefacts that belong to no other project are also deleted. --dry-run
reports what would happen without changing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			fail("project delete", err)
		}
		defer store.Close()

		report, err := newEngine(store).DeleteProject(args[0], projectDeleteFlagPurge, projectDeleteFlagDryRun)
		if err != nil {
			fail("project delete", err)
		}

		if flagJSON {
			printJSON(map[string]any{
				"project":                  report.Project.ID,
				"dry_run":                  projectDeleteFlagDryRun,
				"artefact_count":           report.ArtefactCount,
				"exclusive_artefact_count": report.ExclusiveArtefactCount,
				"sidecars_to_delete":       report.SidecarsToDelete,
			})
			return nil
		}
		if projectDeleteFlagDryRun {
			fmt.Printf("would delete project %s\n", report.Project.ID)
		} else {
			fmt.Printf("deleted project %s\n", report.Project.ID)
		}
		fmt.Printf("  artefacts:           %d\n", report.ArtefactCount)
		fmt.Printf("  exclusive artefacts: %d\n", report.ExclusiveArtefactCount)
		if projectDeleteFlagPurge {
			for _, path := range report.SidecarsToDelete {
				fmt.Printf("  sidecar: %s\n", path)
			}
		}
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectAddFlagName, "name", "", "project name")
	projectAddCmd.Flags().StringVar(&projectAddFlagDescription, "description", "", "project description")

	projectDeleteCmd.Flags().BoolVar(&projectDeleteFlagPurge, "purge-sidecars", false, "delete sidecars of artefacts exclusive to this project")
	projectDeleteCmd.Flags().BoolVar(&projectDeleteFlagDryRun, "dry-run", false, "report without deleting")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectFilesCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}
