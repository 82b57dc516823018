package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/cli"
	"github.com/bivory/grove/internal/core"
)

var (
	skipSessionID    string
	skipLinesChanged uint32
)

var skipCmd = &cobra.Command{
	Use:   "skip <reason...>",
	Short: "Explicitly skip reflection for a session pending or blocked on it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := strings.Join(args, " ")
		out := cli.RecordSkip(store, logger, gateConfig(), skipSessionID, reason, core.DeciderUser, skipLinesChanged)
		return printOutput(out, out.FormatText())
	},
}

func init() {
	skipCmd.Flags().StringVar(&skipSessionID, "session-id", "", "session id to skip reflection for")
	skipCmd.Flags().Uint32Var(&skipLinesChanged, "lines-changed", 0, "lines changed this turn, recorded alongside the skip")
	skipCmd.MarkFlagRequired("session-id")
}
