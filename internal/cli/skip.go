package cli

import (
	"fmt"
	"log/slog"

	"github.com/bivory/grove/internal/config"
	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/stats"
	"github.com/bivory/grove/internal/storage"
)

// SkipOutput is the result of `grove skip`.
type SkipOutput struct {
	Success bool    `json:"success"`
	Reason  string  `json:"reason"`
	Decider string  `json:"decider"`
	Error   *string `json:"error,omitempty"`
}

func skipFailure(err string) SkipOutput {
	return SkipOutput{Error: &err}
}

// RecordSkip records an explicit skip decision, transitioning the gate to
// Skipped via the same state-machine invariant the hook dispatcher
// enforces (only legal from Pending or Blocked) rather than setting the
// status field directly — one source of truth for legal transitions.
func RecordSkip(
	store storage.SessionStore,
	logger *slog.Logger,
	gateConfig core.Config,
	sessionID, reason string,
	decider core.SkipDecider,
	linesChanged uint32,
) SkipOutput {
	session, err := store.Get(sessionID)
	if err != nil || session == nil {
		fresh := core.NewSessionState(sessionID, ".", ".")
		session = &fresh
	}

	if session.Gate.Status.IsTerminal() {
		return skipFailure(fmt.Sprintf("gate already in terminal state: %s", session.Gate.Status))
	}

	gate := core.NewGate(&session.Gate, gateConfig, sessionID)
	lc := int(linesChanged)
	if err := gate.Skip(reason, decider, &lc); err != nil {
		return skipFailure(fmt.Sprintf("cannot skip: %v", err))
	}

	journal := stats.NewLogger(config.ProjectStatsLogPath(session.CWD))
	var ticketID *string
	if session.Gate.Ticket != nil {
		ticketID = &session.Gate.Ticket.TicketID
	}
	event := stats.NewStatsEvent(stats.Skip{
		SessionID:    sessionID,
		Reason:       reason,
		Decider:      decider,
		LinesChanged: linesChanged,
		TicketID:     ticketID,
		ContextFiles: []string{},
	})
	if err := journal.Append(event); err != nil {
		logger.Warn("fail open", "context", "logging skip stats", "error", err)
	}

	session.AppendTrace(core.EventSkip, fmt.Sprintf("%s: %s", decider, reason))

	if err := store.Put(session); err != nil {
		logger.Warn("fail open", "context", "saving session", "error", err)
	}

	return SkipOutput{Success: true, Reason: reason, Decider: string(decider)}
}

// FormatText renders o the way an operator reads it on a terminal.
func (o SkipOutput) FormatText() string {
	if !o.Success {
		msg := "unknown error"
		if o.Error != nil {
			msg = *o.Error
		}
		return fmt.Sprintf("Skip failed: %s", msg)
	}
	return fmt.Sprintf("Skipped (%s): %s", o.Decider, o.Reason)
}
