package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sweep/internal/cli"
)

var positionsCmd = &cobra.Command{
	Use:   "positions <config>",
	Short: "Print every position of a scan without moving anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintPositions(cmd.OutOrStdout(), args[0])
	},
}

var countCmd = &cobra.Command{
	Use:   "count <config>",
	Short: "Print the number of positions of a scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintCount(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(positionsCmd)
	rootCmd.AddCommand(countCmd)
}
