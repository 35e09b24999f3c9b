package cmd

import (
	"fmt"
	"strings"

	"starlord/internal/permalink"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <text>",
	Short: "Print the message timestamp the server would star for the given command text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := permalink.ExtractTimestamp(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ts)
		return nil
	},
}
