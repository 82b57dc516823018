package hooks

import (
	"encoding/json"

	"github.com/bivory/grove/internal/core"
)

// StopDecision is the stop hook's verdict.
type StopDecision string

const (
	DecisionApprove StopDecision = "approve"
	DecisionBlock   StopDecision = "block"
)

// ExitCode maps a StopDecision to the process exit code Claude Code
// expects: 0 lets the session end, 2 blocks it pending reflection.
func (d StopDecision) ExitCode() int {
	if d == DecisionBlock {
		return 2
	}
	return 0
}

// StopOutput is the stop hook's JSON response.
type StopOutput struct {
	Decision StopDecision `json:"decision"`
	Message  *string      `json:"message,omitempty"`
}

func StopApprove() StopOutput {
	return StopOutput{Decision: DecisionApprove}
}

func StopApproveWithMessage(message string) StopOutput {
	return StopOutput{Decision: DecisionApprove, Message: &message}
}

func StopBlock() StopOutput {
	return StopOutput{Decision: DecisionBlock}
}

func StopBlockWithMessage(message string) StopOutput {
	return StopOutput{Decision: DecisionBlock, Message: &message}
}

// PreToolUseOutput is the pre-tool-use hook's JSON response. Allow is a
// plain bool, so a zero-value PreToolUseOutput has Allow false; build an
// allowing response with PreToolUseAllow or PreToolUseAllowWithMessage.
type PreToolUseOutput struct {
	Allow   bool    `json:"allow"`
	Message *string `json:"message,omitempty"`
}

func PreToolUseAllow() PreToolUseOutput {
	return PreToolUseOutput{Allow: true}
}

func PreToolUseAllowWithMessage(message string) PreToolUseOutput {
	return PreToolUseOutput{Allow: true, Message: &message}
}

func PreToolUseDeny() PreToolUseOutput {
	return PreToolUseOutput{Allow: false}
}

func PreToolUseDenyWithReason(reason string) PreToolUseOutput {
	return PreToolUseOutput{Allow: false, Message: &reason}
}

// SessionStartOutput is the session-start hook's JSON response.
// AdditionalContext serializes under the camelCase key Claude Code
// expects, not the snake_case the rest of Grove uses.
type SessionStartOutput struct {
	AdditionalContext *string `json:"additionalContext,omitempty"`
	Message           *string `json:"message,omitempty"`
}

func SessionStartEmpty() SessionStartOutput {
	return SessionStartOutput{}
}

func SessionStartWithContext(context string) SessionStartOutput {
	return SessionStartOutput{AdditionalContext: &context}
}

func SessionStartWithContextAndMessage(context, message string) SessionStartOutput {
	return SessionStartOutput{AdditionalContext: &context, Message: &message}
}

// PostToolUseOutput is the post-tool-use hook's JSON response.
type PostToolUseOutput struct {
	Message *string `json:"message,omitempty"`
}

func PostToolUseEmpty() PostToolUseOutput { return PostToolUseOutput{} }

func PostToolUseWithMessage(message string) PostToolUseOutput {
	return PostToolUseOutput{Message: &message}
}

// SessionEndOutput is the session-end hook's JSON response.
type SessionEndOutput struct {
	Message *string `json:"message,omitempty"`
}

func SessionEndEmpty() SessionEndOutput { return SessionEndOutput{} }

func SessionEndWithMessage(message string) SessionEndOutput {
	return SessionEndOutput{Message: &message}
}

// ToJSON marshals output compactly, wrapping a failure as a core.SerdeErr.
func ToJSON(output any) (string, error) {
	b, err := json.Marshal(output)
	if err != nil {
		return "", core.SerdeErr("failed to serialize output: %v", err)
	}
	return string(b), nil
}

// ToJSONPretty marshals output with indentation, for human-facing CLI
// commands rather than hook stdout.
func ToJSONPretty(output any) (string, error) {
	b, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", core.SerdeErr("failed to serialize output: %v", err)
	}
	return string(b), nil
}
