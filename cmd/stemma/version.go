// Version command for the stemma CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stemma/pkg/stemma"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stemma version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stemma", stemma.Version)
	},
}
