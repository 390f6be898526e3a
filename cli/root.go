// Package cli wires the agentbridge command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/smallnest/agentbridge/cli/commands"
)

var rootCmd = &cobra.Command{
	Use:   "agentbridge",
	Short: "Bridge agent runs to a presentation layer over per-thread event channels",
	Long: `agentbridge mediates between a long-running agent runtime and its
consumers: it streams typed, deduplicated events per conversation thread
over a WebSocket gateway, surfaces human-in-the-loop pause points, and
drives resumption from approve/reject/edit decisions.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(commands.ServeCommand())
	rootCmd.AddCommand(commands.ChatCommand())
	rootCmd.AddCommand(commands.StatusCommand())
}
