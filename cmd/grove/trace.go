package main

import (
	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/cli"
)

var (
	traceLimit     int
	traceEventType string
)

var traceCmd = &cobra.Command{
	Use:   "trace <session-id>",
	Short: "Show a session's trace events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.TraceOptions{EventType: traceEventType}
		if cmd.Flags().Changed("limit") {
			limit := traceLimit
			opts.Limit = &limit
		}
		out := cli.ShowTrace(store, args[0], opts)
		return printOutput(out, out.FormatText())
	},
}

func init() {
	traceCmd.Flags().IntVar(&traceLimit, "limit", 0, "maximum number of events to show (all events when not set)")
	traceCmd.Flags().StringVar(&traceEventType, "type", "", "filter events whose type contains this substring")
}
