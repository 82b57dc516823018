// Command grove is the reflection-gate controller's CLI: it dispatches the
// six Claude Code hook lifecycle points and exposes the operator commands
// (sessions, trace, observe, skip, archive).
//
// Grounded on the teacher's cmd/kd/main.go: a package-level root command
// built in init(), persistent flags resolved from the environment, shared
// collaborators wired once in PersistentPreRunE and torn down in
// PersistentPostRun.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/config"
	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/discovery"
	"github.com/bivory/grove/internal/events"
	"github.com/bivory/grove/internal/hooks"
	"github.com/bivory/grove/internal/storage"
)

var (
	jsonOutput bool

	cfg       *config.Config
	store     storage.SessionStore
	publisher events.Publisher
	logger    *slog.Logger
	runner    *hooks.HookRunner
)

var rootCmd = &cobra.Command{
	Use:   "grove <command>",
	Short: "Reflection-gate controller for Claude Code sessions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

// setup loads config and wires store/publisher/runner once per invocation.
// It is the CLI-process analogue of the teacher's beadsClient construction
// in PersistentPreRunE: one place collaborators are built from flags/env,
// reused by every subcommand's RunE.
func setup() error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c

	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch cfg.Backend {
	case "postgres":
		s, err := storage.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		store = s
	default:
		s, err := storage.NewFileStore(cfg.SessionsDir)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		store = s
	}

	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			// Fail-open at the transport layer too: a misconfigured or
			// unreachable event sidecar never blocks the agent.
			logger.Warn("fail open", "context", "connecting to NATS", "error", err)
			publisher = &events.NoopPublisher{}
		} else {
			publisher = p
		}
	} else {
		publisher = &events.NoopPublisher{}
	}

	runner = hooks.NewHookRunner(
		store,
		cfg.GateConfig(),
		logger,
		discovery.NewFileMarkerTicketDiscoverer(),
		discovery.NewFileMarkerBackendDiscoverer(),
		discovery.NewDefaultCloseMatcher(),
		publisher,
	)

	return nil
}

func teardown() {
	if publisher != nil {
		_ = publisher.Close()
	}
}

func gateConfig() core.Config {
	return cfg.GateConfig()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(archiveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
