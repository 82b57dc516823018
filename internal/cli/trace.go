package cli

import (
	"fmt"
	"strings"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/storage"
)

// TraceEventInfo is one row of `grove trace` output.
type TraceEventInfo struct {
	Timestamp string  `json:"timestamp"`
	EventType string  `json:"event_type"`
	Details   *string `json:"details,omitempty"`
}

func traceEventInfo(e core.TraceEvent) TraceEventInfo {
	info := TraceEventInfo{
		Timestamp: e.Timestamp.Format("2006-01-02 15:04:05"),
		EventType: string(e.EventType),
	}
	if e.Details != "" {
		info.Details = &e.Details
	}
	return info
}

// TraceOutput is the result of `grove trace`.
type TraceOutput struct {
	Success   bool             `json:"success"`
	SessionID string           `json:"session_id"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
	Events    []TraceEventInfo `json:"events"`
	Error     *string          `json:"error,omitempty"`
}

func traceFailure(sessionID, err string) TraceOutput {
	return TraceOutput{SessionID: sessionID, Events: []TraceEventInfo{}, Error: &err}
}

// TraceOptions narrows and bounds which events ShowTrace returns.
type TraceOptions struct {
	Limit     *int
	EventType string // substring filter, case-insensitive; "" means no filter
}

// ShowTrace returns sessionID's trace, optionally filtered by EventType and
// bounded by Limit, alongside the unfiltered total.
func ShowTrace(store storage.SessionStore, sessionID string, opts TraceOptions) TraceOutput {
	session, err := store.Get(sessionID)
	if err != nil {
		return traceFailure(sessionID, fmt.Sprintf("failed to load session: %v", err))
	}
	if session == nil {
		return traceFailure(sessionID, fmt.Sprintf("session not found: %s", sessionID))
	}

	total := len(session.Trace)
	events := make([]TraceEventInfo, 0, total)
	for _, e := range session.Trace {
		events = append(events, traceEventInfo(e))
	}

	if opts.EventType != "" {
		filtered := events[:0]
		needle := strings.ToLower(opts.EventType)
		for _, e := range events {
			if strings.Contains(strings.ToLower(e.EventType), needle) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if opts.Limit != nil && len(events) > *opts.Limit {
		events = events[:*opts.Limit]
	}

	return TraceOutput{Success: true, SessionID: sessionID, Count: len(events), Total: total, Events: events}
}

// FormatText renders o the way an operator reads it on a terminal.
func (o TraceOutput) FormatText() string {
	if !o.Success {
		msg := "unknown error"
		if o.Error != nil {
			msg = *o.Error
		}
		return fmt.Sprintf("Trace failed: %s", msg)
	}
	if len(o.Events) == 0 {
		return fmt.Sprintf("No trace events for session %s.", o.SessionID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trace for %s (%d of %d events):\n\n", o.SessionID, o.Count, o.Total)
	for _, e := range o.Events {
		if e.Details != nil {
			fmt.Fprintf(&b, "%s  %-24s  %s\n", e.Timestamp, e.EventType, *e.Details)
		} else {
			fmt.Fprintf(&b, "%s  %s\n", e.Timestamp, e.EventType)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
