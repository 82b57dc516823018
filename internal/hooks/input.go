// Package hooks implements the six Claude Code hook lifecycle points
// (spec.md §4.2): parsing hook stdin, running gate logic against the
// session store, and shaping hook stdout/exit-code output.
package hooks

import (
	"encoding/json"

	"github.com/bivory/grove/internal/core"
)

// HookInput carries the fields every hook receives on stdin.
type HookInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
}

// SessionStartInput is HookInput with no hook-specific fields.
type SessionStartInput = HookInput

// PreToolUseInput is HookInput plus the tool about to run.
type PreToolUseInput struct {
	HookInput
	ToolName  string `json:"tool_name"`
	ToolInput any    `json:"tool_input"`
}

// PostToolUseInput is HookInput plus the tool that ran and its response.
type PostToolUseInput struct {
	HookInput
	ToolName     string `json:"tool_name"`
	ToolInput    any    `json:"tool_input"`
	ToolResponse string `json:"tool_response"`
}

// StopInput is HookInput with no hook-specific fields.
type StopInput = HookInput

// SessionEndReason is the closed set of reasons Claude Code reports a
// session ended for.
type SessionEndReason string

const (
	SessionEndUserExit     SessionEndReason = "user_exit"
	SessionEndTimeout      SessionEndReason = "timeout"
	SessionEndLimitReached SessionEndReason = "limit_reached"
	SessionEndError        SessionEndReason = "error"
	SessionEndUnknown      SessionEndReason = "unknown"
)

// SessionEndInput is HookInput plus the reason the session ended.
type SessionEndInput struct {
	HookInput
	Reason SessionEndReason `json:"reason"`
}

// TaskCompletedInput carries the fields the task-completed hook receives.
// This hook has no counterpart in the original Rust implementation; its
// shape follows spec.md §6's field list directly.
type TaskCompletedInput struct {
	HookInput
	TaskID          string  `json:"task_id"`
	TaskSubject     string  `json:"task_subject"`
	TaskDescription *string `json:"task_description,omitempty"`
	TeammateName    *string `json:"teammate_name,omitempty"`
	TeamName        *string `json:"team_name,omitempty"`
}

// UnmarshalJSON defaults Reason to SessionEndUnknown when the field is
// absent, matching the original's #[derive(Default)] on the enum.
func (i *SessionEndInput) UnmarshalJSON(data []byte) error {
	type alias SessionEndInput
	aux := alias{Reason: SessionEndUnknown}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Reason == "" {
		aux.Reason = SessionEndUnknown
	}
	*i = SessionEndInput(aux)
	return nil
}

// ParseInput decodes json into a T, wrapping any decode failure as a
// core.SerdeErr.
func ParseInput[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, core.SerdeErr("failed to parse hook input: %v", err)
	}
	return v, nil
}
