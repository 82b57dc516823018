package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/cli"
	"github.com/bivory/grove/internal/hooks"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List tracked sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cli.ListSessions(store, sessionsLimit)
		return printOutput(out, out.FormatText())
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum number of sessions to list")
}

// printOutput prints output as pretty JSON when --json is set, or as text
// otherwise. It's shared by every operator subcommand in this package.
func printOutput(output any, text string) error {
	if jsonOutput {
		s, err := hooks.ToJSONPretty(output)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}
	fmt.Println(text)
	return nil
}
