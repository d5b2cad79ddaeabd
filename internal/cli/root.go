// Package cli implements the `fleet` client: every subcommand builds one
// ipc.Request, sends it to the running fleetd daemon, and renders the
// response.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Watch git remotes and run dependency-graph job pipelines",
	Long: `fleet is the client for fleetd, a daemon that watches configured git
remotes for new commits and runs a DAG of shell/container steps defined in
fleet.yml whenever a watched branch advances.`,
}

func init() {
	rootCmd.AddCommand(versionCmd, watchCmd, psCmd, logsCmd, stopCmd, upCmd, rmCmd, runCmd, statsCmd, validateCmd, graphCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fleet %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
