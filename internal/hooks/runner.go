package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bivory/grove/internal/config"
	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/discovery"
	"github.com/bivory/grove/internal/events"
	"github.com/bivory/grove/internal/stats"
	"github.com/bivory/grove/internal/storage"
)

// HookType is the closed set of Claude Code hook lifecycle points Grove
// dispatches (spec.md §4.2).
type HookType string

const (
	HookSessionStart  HookType = "session-start"
	HookPreToolUse    HookType = "pre-tool-use"
	HookPostToolUse   HookType = "post-tool-use"
	HookStop          HookType = "stop"
	HookSessionEnd    HookType = "session-end"
	HookTaskCompleted HookType = "task-completed"
)

// ParseHookType accepts hyphenated, underscored, or bare-concatenated
// spellings of any of the six hook names (e.g. "session-start",
// "session_start", "sessionstart" all parse to HookSessionStart), matching
// the CLI conventions the hook's caller (Claude Code itself) isn't strict
// about.
func ParseHookType(s string) (HookType, bool) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s))
	switch normalized {
	case "sessionstart":
		return HookSessionStart, true
	case "pretooluse":
		return HookPreToolUse, true
	case "posttooluse":
		return HookPostToolUse, true
	case "stop":
		return HookStop, true
	case "sessionend":
		return HookSessionEnd, true
	case "taskcompleted":
		return HookTaskCompleted, true
	default:
		return "", false
	}
}

// HookRunner dispatches the six hook lifecycle points against a
// SessionStore, gate config, and the narrow discovery/event-sidecar
// collaborators. Every store, journal, and publisher failure is fail-open:
// it is logged and otherwise ignored, never surfaced to the agent.
//
// Grounded on original_source/src/hooks/runner.rs's HookRunner, adapted to
// Go's explicit-error idiom and the teacher's cmd/kd/hook.go stop-gate
// command, which established the "read stdin JSON, run backend logic,
// write JSON/exit code" shape this package generalizes to all six hooks.
type HookRunner struct {
	store             storage.SessionStore
	gateConfig        core.Config
	logger            *slog.Logger
	ticketDiscoverer  discovery.TicketDiscoverer
	backendDiscoverer discovery.BackendDiscoverer
	closeMatcher      discovery.CloseMatcher
	publisher         events.Publisher
}

// NewHookRunner wires every collaborator the dispatcher needs.
func NewHookRunner(
	store storage.SessionStore,
	gateConfig core.Config,
	logger *slog.Logger,
	ticketDiscoverer discovery.TicketDiscoverer,
	backendDiscoverer discovery.BackendDiscoverer,
	closeMatcher discovery.CloseMatcher,
	publisher events.Publisher,
) *HookRunner {
	return &HookRunner{
		store:             store,
		gateConfig:        gateConfig,
		logger:            logger,
		ticketDiscoverer:  ticketDiscoverer,
		backendDiscoverer: backendDiscoverer,
		closeMatcher:      closeMatcher,
		publisher:         publisher,
	}
}

// Run reads a hook's JSON input from stdin and dispatches it.
func (r *HookRunner) Run(hookType HookType) (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", core.StorageErr("stdin", err)
	}
	return r.RunWithInput(hookType, string(data))
}

// RunWithInput dispatches input (already-read hook stdin) to the handler
// for hookType.
func (r *HookRunner) RunWithInput(hookType HookType, input string) (string, error) {
	switch hookType {
	case HookSessionStart:
		return r.handleSessionStart(input)
	case HookPreToolUse:
		return r.handlePreToolUse(input)
	case HookPostToolUse:
		return r.handlePostToolUse(input)
	case HookStop:
		return r.handleStop(input)
	case HookSessionEnd:
		return r.handleSessionEnd(input)
	case HookTaskCompleted:
		return r.handleTaskCompleted(input)
	default:
		return "", core.ConfigErr("unknown hook type %q", hookType)
	}
}

func (r *HookRunner) handleSessionStart(input string) (string, error) {
	in, err := ParseInput[SessionStartInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session := r.getOrCreateSession(in.SessionID, in.CWD, in.TranscriptPath)
	r.trace(session, core.EventSessionStart, "")

	ctx := context.Background()
	if ticket, found, err := r.ticketDiscoverer.DetectTicket(ctx, in.CWD); err == nil && found {
		r.trace(session, core.EventTicketDetected, fmt.Sprintf("system: %s", ticket.Source))
	}
	if backend, found, err := r.backendDiscoverer.DetectBackend(ctx, in.CWD); err == nil && found {
		r.trace(session, core.EventBackendDetected, fmt.Sprintf("backend: %s", backend))
	}
	// Full learning search/injection is reflection-subsystem territory
	// (spec.md §1 non-goals); the gate only records that some are pending.
	if n := len(session.Gate.InjectedLearnings); n > 0 {
		r.trace(session, core.EventLearningsInjected, fmt.Sprintf("count: %d", n))
	}

	var output SessionStartOutput
	if notices := r.correctionNotices(in.CWD, session); len(notices) > 0 {
		additionalContext := "[CORRECTION NOTICE] The following learnings have been corrected since you may have last seen them:\n" +
			strings.Join(notices, "\n")
		r.trace(session, core.EventCorrectionNotice, fmt.Sprintf("count: %d", len(notices)))
		output = SessionStartWithContext(additionalContext)
	} else {
		output = SessionStartEmpty()
	}

	r.save(session)
	return ToJSON(output)
}

func (r *HookRunner) handlePreToolUse(input string) (string, error) {
	in, err := ParseInput[PreToolUseInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session, err := r.store.Get(in.SessionID)
	if err != nil || session == nil {
		// Fail-open: an unknown session never blocks a tool call.
		return ToJSON(PreToolUseAllow())
	}

	command := commandFromToolInput(in.ToolInput)
	if ticketID, matched := r.closeMatcher.Match(command); matched {
		gate := core.NewGate(&session.Gate, r.gateConfig, session.ID)
		gate.RecordCloseIntent(core.TicketCloseIntent{
			TicketID:   ticketID,
			Command:    command,
			RecordedAt: time.Now().UTC(),
		})
		r.trace(session, core.EventTicketCloseDetected, fmt.Sprintf("ticket: %s", ticketID))
		r.save(session)
	}

	// Pre-tool-use never blocks in this implementation; it only observes.
	return ToJSON(PreToolUseAllow())
}

func (r *HookRunner) handlePostToolUse(input string) (string, error) {
	in, err := ParseInput[PostToolUseInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session, err := r.store.Get(in.SessionID)
	if err != nil || session == nil {
		return ToJSON(PostToolUseEmpty())
	}

	if session.Gate.TicketCloseIntent != nil {
		r.resolveCloseIntent(session, in.ToolResponse)
		r.save(session)
	}

	return ToJSON(PostToolUseEmpty())
}

// resolveCloseIntent confirms or abandons a recorded close intent depending
// on whether the tool response looks like a success, and on the gate's
// status at the moment the response arrived. A second ticket close arriving
// while the gate sits in a terminal state (Reflected/Skipped) resets it for
// a fresh ticket before confirming, rather than being rejected outright.
func (r *HookRunner) resolveCloseIntent(session *core.SessionState, toolResponse string) {
	lower := strings.ToLower(toolResponse)
	success := !strings.Contains(lower, "error") && !strings.Contains(toolResponse, "exit code")
	intent := *session.Gate.TicketCloseIntent
	currentStatus := session.Gate.Status
	gate := core.NewGate(&session.Gate, r.gateConfig, session.ID)

	if !success {
		gate.ClearCloseIntent()
		r.trace(session, core.EventTicketCloseFailed, fmt.Sprintf("ticket: %s", intent.TicketID))
		return
	}

	confirm := func() {
		if err := gate.ConfirmTicketClose(); err == nil {
			r.trace(session, core.EventTicketClosed, fmt.Sprintf("ticket: %s", intent.TicketID))
		}
	}

	switch {
	case currentStatus == core.StatusActive:
		confirm()
	case currentStatus == core.StatusIdle:
		ticket := core.TicketContext{TicketID: intent.TicketID, Source: "detected"}
		if err := gate.DetectTicket(ticket); err == nil {
			confirm()
		}
	case currentStatus.IsTerminal():
		if err := gate.ResetForNewTicket(); err == nil {
			r.trace(session, core.EventGateStatusChanged, "reset from terminal state for new ticket")
			ticket := core.TicketContext{TicketID: intent.TicketID, Source: "detected"}
			if err := gate.DetectTicket(ticket); err == nil {
				confirm()
			}
		}
	}
}

func (r *HookRunner) handleStop(input string) (string, error) {
	in, err := ParseInput[StopInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session, err := r.store.Get(in.SessionID)
	if err != nil || session == nil {
		return ToJSON(StopApprove())
	}

	r.trace(session, core.EventStopHookCalled, "")

	if session.Gate.Status.IsTerminal() {
		r.save(session)
		return ToJSON(StopApprove())
	}

	gate := core.NewGate(&session.Gate, r.gateConfig, session.ID)

	if session.Gate.Status == core.StatusIdle {
		if reason := gate.EvaluateAutoSkip(session.Gate.CachedDiffSize); reason != nil {
			// Skip is only legal from Pending or Blocked, so the Idle gate is
			// first moved to Pending with the diff size it already caches.
			if err := gate.EnableSessionGate(*session.Gate.CachedDiffSize); err == nil {
				if err := gate.Skip(*reason, core.DeciderAutoThreshold, nil); err == nil {
					r.trace(session, core.EventSkip, *reason)
				}
			}
		}
		r.save(session)
		return ToJSON(StopApprove())
	}

	if session.Gate.Status.RequiresReflection() {
		tripped, err := gate.Block()
		if err != nil {
			r.save(session)
			return ToJSON(StopApprove())
		}
		if tripped {
			r.trace(session, core.EventCircuitBreakerTripped, "")
			r.save(session)
			return ToJSON(StopApproveWithMessage("Circuit breaker tripped. Reflection skipped."))
		}
		r.trace(session, core.EventGateBlocked, "")
		r.save(session)
		message := fmt.Sprintf("Reflection required. Run `grove reflect --session-id %s` or `grove skip <reason> --session-id %s`", session.ID, session.ID)
		return ToJSON(StopBlockWithMessage(message))
	}

	r.save(session)
	return ToJSON(StopApprove())
}

func (r *HookRunner) handleSessionEnd(input string) (string, error) {
	in, err := ParseInput[SessionEndInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session, err := r.store.Get(in.SessionID)
	if err != nil || session == nil {
		return ToJSON(SessionEndEmpty())
	}

	journal := stats.NewLogger(config.ProjectStatsLogPath(in.CWD))
	for _, learning := range session.Gate.InjectedLearnings {
		if learning.Outcome != core.OutcomePending {
			continue
		}
		event := stats.NewStatsEvent(stats.Dismissed{LearningID: learning.LearningID, SessionID: session.ID})
		if err := journal.Append(event); err != nil {
			r.logger.Warn("fail open", "context", "journal.Append dismissed", "error", err)
			continue
		}
		if err := r.publisher.Publish(context.Background(), events.TopicJournal, events.JournalMessage{Event: event}); err != nil {
			r.logger.Warn("fail open", "context", "publisher.Publish journal", "error", err)
		}
	}

	r.trace(session, core.EventSessionEnd, fmt.Sprintf("reason: %s", in.Reason))
	r.save(session)
	return ToJSON(SessionEndEmpty())
}

func (r *HookRunner) handleTaskCompleted(input string) (string, error) {
	in, err := ParseInput[TaskCompletedInput]([]byte(input))
	if err != nil {
		return "", err
	}

	session := r.getOrCreateSession(in.SessionID, in.CWD, in.TranscriptPath)

	gate := core.NewGate(&session.Gate, r.gateConfig, session.ID)
	ticket := core.TicketContext{TicketID: in.TaskID, Source: "tasks"}
	if err := gate.DetectTicket(ticket); err == nil {
		_ = gate.ConfirmTicketClose()
	}
	r.trace(session, core.EventTicketClosed, fmt.Sprintf("task_id: %s, subject: %s", in.TaskID, in.TaskSubject))
	r.save(session)

	message := fmt.Sprintf("Task completed. Reflection required. Run `grove reflect --session-id %s` or `grove skip <reason> --session-id %s`", session.ID, session.ID)
	return ToJSON(StopBlockWithMessage(message))
}

// getOrCreateSession loads an existing session or synthesizes a fresh one.
// It never persists — the caller saves after whatever mutation follows.
func (r *HookRunner) getOrCreateSession(sessionID, cwd, transcriptPath string) *core.SessionState {
	if s, err := r.store.Get(sessionID); err == nil && s != nil {
		return s
	}
	fresh := core.NewSessionState(sessionID, cwd, transcriptPath)
	return &fresh
}

// trace appends a trace event and mirrors it to the event sidecar,
// fail-open on a publish error.
func (r *HookRunner) trace(session *core.SessionState, eventType core.EventType, details string) {
	session.AppendTrace(eventType, details)
	last := session.Trace[len(session.Trace)-1]
	msg := events.TraceMessage{SessionID: session.ID, Event: last}
	if err := r.publisher.Publish(context.Background(), events.TopicSessionTrace(session.ID), msg); err != nil {
		r.logger.Warn("fail open", "context", "publisher.Publish trace", "error", err)
	}
}

// save persists session, fail-open on a store error.
func (r *HookRunner) save(session *core.SessionState) {
	if err := r.store.Put(session); err != nil {
		r.logger.Warn("fail open", "context", "store.Put", "error", err)
	}
}

// correctionNotices is a best-effort scan of the project's journal for
// learnings that were corrected after being injected into this session.
// Any read failure yields no notices rather than an error — correction
// propagation is an observability nicety, not a gate dependency.
func (r *HookRunner) correctionNotices(cwd string, session *core.SessionState) []string {
	journal := stats.NewLogger(config.ProjectStatsLogPath(cwd))
	recorded, err := journal.ReadAll()
	if err != nil {
		return nil
	}

	corrected := make(map[string]bool)
	for _, e := range recorded {
		if c, ok := e.Event.(stats.Corrected); ok {
			corrected[c.LearningID] = true
		}
	}

	var notices []string
	for _, learning := range session.Gate.InjectedLearnings {
		if corrected[learning.LearningID] {
			notices = append(notices, fmt.Sprintf("- Learning ID: %s", learning.LearningID))
		}
	}
	return notices
}

// commandFromToolInput extracts the "command" string field a shell-style
// tool_input carries, or "" if absent or not shell-shaped.
func commandFromToolInput(toolInput any) string {
	m, ok := toolInput.(map[string]any)
	if !ok {
		return ""
	}
	cmd, _ := m["command"].(string)
	return cmd
}
