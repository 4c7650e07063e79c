package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/sweep/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <config>",
	Short: "Run the scan described by a configuration file",
	Long: `Runs the scan against the simulated device. The first Ctrl+C aborts at the
next position boundary and runs the finalization actions; a second one cancels
immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		opts := cli.RunOptions{ConfigPath: args[0]}
		opts.Debug, _ = flags.GetBool("debug")
		opts.LogFormat, _ = flags.GetString("log-format")
		opts.ToolsPath, _ = flags.GetString("tools")
		opts.Output, _ = flags.GetString("output")
		opts.ControlAddr, _ = flags.GetString("control")
		opts.Metrics, _ = flags.GetBool("metrics")
		opts.Quiet, _ = flags.GetBool("quiet")
		opts.Redis, _ = flags.GetString("redis")

		return cli.Execute(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("tools", "tools.yaml", "Allow-list of commands available to tool actions")
	runCmd.Flags().StringP("output", "o", "", "Write the scan data to this file instead of stdout")
	runCmd.Flags().String("control", "", "Serve the HTTP control API on this address (e.g. :8080)")
	runCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on the control API")
	runCmd.Flags().BoolP("quiet", "q", false, "Disable the banner, progress bar and summary")
	runCmd.Flags().String("redis", "", "Redis address for remote pause/abort (overrides control.redis)")
}
