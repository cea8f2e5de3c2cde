// Package commands implements the streambot CLI using cobra.
package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "streambot",
		Short: "streambot - stream-reactive social media bot framework",
		Long: `streambot is a framework for long-running social media bots:
it consumes a real-time event stream, tracks reply-thread conversations,
resolves mentions, and posts replies with optional media attachments.

Examples:
  streambot setup
  streambot run --demo
  streambot schedule add "@hourly" "beep boop"
  streambot schedule list`,
		Version: version,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newSetupCmd(),
		newScheduleCmd(),
		newVersionCmd(version),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "streambot.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("streambot %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
