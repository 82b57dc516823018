package main

// grove hook — dispatches the six Claude Code hook lifecycle points.
//
// Grounded on the teacher's cmd/kd/hook.go stop-gate subcommand: read the
// hook event JSON from stdin, run backend logic, print the JSON response,
// and on a block decision also exit 2 so Claude Code itself treats the
// turn as blocked.

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook <type>",
	Short: "Dispatch a Claude Code hook event read from stdin",
	Long: "Dispatch a Claude Code hook event read from stdin. <type> is one of " +
		"session-start, pre-tool-use, post-tool-use, stop, session-end, task-completed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hookType, ok := hooks.ParseHookType(args[0])
		if !ok {
			return fmt.Errorf("unknown hook type %q", args[0])
		}

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading hook input: %w", err)
		}

		output, err := runner.RunWithInput(hookType, string(input))
		if err != nil {
			// Hook dispatch is fail-open by construction everywhere a
			// collaborator can fail; reaching here means the input itself
			// didn't parse. Approve rather than wedge the agent.
			fmt.Fprintln(os.Stderr, err)
			return nil
		}

		fmt.Println(output)

		if decision := blockDecision(output); decision {
			os.Exit(2)
		}
		return nil
	},
}

// blockDecision reports whether output (a hook's JSON response) carries a
// "decision":"block" field. Only the stop and task-completed hooks ever
// set it; every other hook's response has no such field and this reports
// false.
func blockDecision(output string) bool {
	var probe struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(output), &probe); err != nil {
		return false
	}
	return probe.Decision == "block"
}
