// Package main provides the stemma CLI: artefact tagging, identity
// resolution, lineage inspection, and bundle sync against a local
// SQLite database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
