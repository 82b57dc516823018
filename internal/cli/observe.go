package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/storage"
)

// ObserveOutput is the result of `grove observe`.
type ObserveOutput struct {
	Success          bool    `json:"success"`
	Note             string  `json:"note"`
	ObservationCount int     `json:"observation_count"`
	Error            *string `json:"error,omitempty"`
}

func observeFailure(err string) ObserveOutput {
	return ObserveOutput{Error: &err}
}

// RecordObservation appends a free-text subagent note to sessionID's gate
// state. A missing session is not an error: a fresh one is synthesized (and
// saved) so an observation from a session the dispatcher hasn't seen yet
// isn't lost.
func RecordObservation(store storage.SessionStore, logger *slog.Logger, sessionID, note string) ObserveOutput {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return observeFailure("observation note cannot be empty")
	}

	session, err := store.Get(sessionID)
	if err != nil || session == nil {
		fresh := core.NewSessionState(sessionID, ".", ".")
		session = &fresh
	}

	session.Gate.SubagentObservations = append(session.Gate.SubagentObservations, core.SubagentObservation{
		Note: trimmed,
	})
	count := len(session.Gate.SubagentObservations)
	session.AppendTrace(core.EventObservationRecorded, core.TruncateUTF8(trimmed, 100))

	if err := store.Put(session); err != nil {
		logger.Warn("fail open", "context", "saving session", "error", err)
	}

	return ObserveOutput{Success: true, Note: trimmed, ObservationCount: count}
}

// FormatText renders o the way an operator reads it on a terminal.
func (o ObserveOutput) FormatText() string {
	if !o.Success {
		msg := "unknown error"
		if o.Error != nil {
			msg = *o.Error
		}
		return fmt.Sprintf("Observe failed: %s", msg)
	}
	return fmt.Sprintf("Recorded observation (%d total): %s", o.ObservationCount, o.Note)
}
