package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/cli"
)

var observeSessionID string

var observeCmd = &cobra.Command{
	Use:   "observe <note...>",
	Short: "Record a subagent observation against a session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note := strings.Join(args, " ")
		out := cli.RecordObservation(store, logger, observeSessionID, note)
		return printOutput(out, out.FormatText())
	},
}

func init() {
	observeCmd.Flags().StringVar(&observeSessionID, "session-id", "", "session id to attach the observation to")
	observeCmd.MarkFlagRequired("session-id")
}
