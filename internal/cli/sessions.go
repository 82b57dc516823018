// Package cli implements the four operator-facing Grove commands (spec.md
// §4.5): listing sessions, inspecting a session's trace, recording a
// subagent observation, and recording an explicit skip. Each command is a
// thin, store-only function so cmd/grove's cobra wiring stays a pure
// presentation layer.
//
// Grounded on original_source/src/cli/{sessions,trace,observe,skip}.rs.
package cli

import (
	"fmt"
	"strings"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/storage"
)

// SessionSummary is one row of `grove sessions` output.
type SessionSummary struct {
	ID         string  `json:"id"`
	GateStatus string  `json:"gate_status"`
	ProjectDir string  `json:"project_dir"`
	UpdatedAt  string  `json:"updated_at"`
	TicketID   *string `json:"ticket_id,omitempty"`
}

func summaryFromSession(s *core.SessionState) SessionSummary {
	summary := SessionSummary{
		ID:         s.ID,
		GateStatus: string(s.Gate.Status),
		ProjectDir: s.CWD,
		UpdatedAt:  s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if s.Gate.Ticket != nil {
		summary.TicketID = &s.Gate.Ticket.TicketID
	}
	return summary
}

// SessionsOutput is the result of `grove sessions`.
type SessionsOutput struct {
	Success  bool             `json:"success"`
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
	Error    *string          `json:"error,omitempty"`
}

func sessionsSuccess(sessions []SessionSummary) SessionsOutput {
	return SessionsOutput{Success: true, Sessions: sessions, Count: len(sessions)}
}

func sessionsFailure(err string) SessionsOutput {
	return SessionsOutput{Success: false, Sessions: []SessionSummary{}, Error: &err}
}

// ListSessions lists up to limit sessions, most recently updated first.
func ListSessions(store storage.SessionStore, limit int) SessionsOutput {
	sessions, err := store.List(limit)
	if err != nil {
		return sessionsFailure(fmt.Sprintf("failed to list sessions: %v", err))
	}
	summaries := make([]SessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, summaryFromSession(&sessions[i]))
	}
	return sessionsSuccess(summaries)
}

// FormatText renders o the way an operator reads it on a terminal.
func (o SessionsOutput) FormatText() string {
	if !o.Success {
		msg := "unknown error"
		if o.Error != nil {
			msg = *o.Error
		}
		return fmt.Sprintf("Sessions failed: %s", msg)
	}
	if len(o.Sessions) == 0 {
		return "No sessions found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d found):\n\n", o.Count)
	fmt.Fprintf(&b, "%-36s  %-10s  %-20s  %s\n", "ID", "STATUS", "UPDATED", "TICKET")
	b.WriteString(strings.Repeat("-", 90))
	b.WriteString("\n")
	for _, s := range o.Sessions {
		ticket := "-"
		if s.TicketID != nil {
			ticket = *s.TicketID
		}
		updated := s.UpdatedAt
		if runes := []rune(updated); len(runes) > 19 {
			updated = string(runes[:19])
		}
		fmt.Fprintf(&b, "%-36s  %-10s  %-20s  %s\n", s.ID, s.GateStatus, updated, ticket)
	}
	return strings.TrimRight(b.String(), "\n")
}
