package cmd

import (
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X starlord/cmd.Version=...".
var Version = "1.0.0"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "starlord",
	Short: "Starlord - star Slack messages from a slash command",
	Long: `Starlord receives a Slack slash command containing a message link,
stars that message on behalf of the app and reports back to the user
through the command's response URL.

Run without a subcommand to start the webhook server.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
}
