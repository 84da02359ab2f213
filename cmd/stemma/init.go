// Init command for the stemma CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/paths"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the stemma database",
	Long:  `Create the stemma database and apply schema migrations. The location follows --db, config db_path, STEMMA_DB_PATH, then the current directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		store, err := openStore(false)
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}
		defer store.Close()

		dbPath, err := resolveDBPath(false)
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(exitSysError)
		}

		fmt.Println("Stemma initialized successfully")
		fmt.Println("  config:  ", configDir)
		fmt.Println("  database:", dbPath)
		return nil
	},
}
