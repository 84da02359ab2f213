// Root command for the stemma CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/internal/paths"
	"github.com/mesh-intelligence/stemma/pkg/stemma"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDB        string
	flagJSON      bool
	flagVerbose   bool
)

// configDBPath holds the db_path value loaded from config.yaml. Set by
// PersistentPreRunE so all subcommands can use it.
var configDBPath string

var rootCmd = &cobra.Command{
	Use:   "stemma",
	Short: "Stemma tracks artefact identity and lineage",
	Long: `Stemma assigns files a stable DNA token, detects content changes by
hashing, and records a lineage graph of derivation relationships. The
graph can be exported to a portable bundle and merged into another
database.`,
	Version: stemma.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}

		configDir, err := paths.ResolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		configDBPath = cfg.GetString(cfgKeyDBPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir /stemma)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database file (default: searched upward from CWD)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(projectCmd)
}

// resolveDBPath returns the database path following the precedence
// --db flag > config.yaml db_path > STEMMA_DB_PATH env > upward search.
func resolveDBPath(requireExists bool) (string, error) {
	return paths.ResolveDBPath(flagDB, configDBPath, requireExists)
}
