package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sweep"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sweep",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sweep version %s\n", strings.TrimSpace(sweep.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
