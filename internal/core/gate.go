package core

import (
	"fmt"
	"time"

	"github.com/antithesishq/antithesis-sdk-go/assert"
)

// Config holds the circuit breaker and auto-skip policy knobs the gate
// consults. It carries no I/O; values are supplied by the caller (loaded
// from internal/config in the CLI binary, or set directly in tests).
type Config struct {
	MaxBlocks         int
	CooldownSeconds   int64
	AutoSkipEnabled   bool
	AutoSkipThreshold int
	// AutoSkipDecider is a free-form policy string ("never" disables
	// auto-skip even under threshold; any other value, including "always",
	// only matters when a diff size is actually known).
	AutoSkipDecider string
}

// DefaultConfig returns the gate defaults named in spec.md §4.1.
func DefaultConfig() Config {
	return Config{
		MaxBlocks:         3,
		CooldownSeconds:   300,
		AutoSkipEnabled:   false,
		AutoSkipThreshold: 10,
		AutoSkipDecider:   "agent",
	}
}

// Gate is a pure function over (GateState, Config, session id, request) ->
// (new GateState, decision). It performs no I/O; every method mutates the
// GateState pointer it was constructed with and returns only an error for
// illegal transitions.
type Gate struct {
	state     *GateState
	config    Config
	sessionID string
}

// NewGate wraps state for mutation under config, attributing circuit
// breaker bookkeeping to sessionID.
func NewGate(state *GateState, config Config, sessionID string) *Gate {
	return &Gate{state: state, config: config, sessionID: sessionID}
}

// DetectTicket transitions Idle -> Active, recording t as the tracked
// ticket.
func (g *Gate) DetectTicket(t TicketContext) error {
	if g.state.Status != StatusIdle {
		return InvalidStateErr("cannot detect ticket from status %s", g.state.Status)
	}
	g.state.Ticket = &t
	g.state.Status = StatusActive
	return nil
}

// EnableSessionGate transitions Idle -> Pending for session-mode gating,
// caching n as the diff size auto-skip will later evaluate.
func (g *Gate) EnableSessionGate(n int) error {
	if g.state.Status != StatusIdle {
		return InvalidStateErr("cannot enable session gate from status %s", g.state.Status)
	}
	g.state.CachedDiffSize = &n
	g.state.Status = StatusPending
	return nil
}

// ConfirmTicketClose transitions Active -> Pending, clearing any recorded
// close intent (it has now been confirmed, not abandoned).
func (g *Gate) ConfirmTicketClose() error {
	if g.state.Status != StatusActive {
		return InvalidStateErr("cannot confirm ticket close from status %s", g.state.Status)
	}
	g.state.TicketCloseIntent = nil
	g.state.Status = StatusPending
	return nil
}

// AbandonTicket transitions Active -> Idle, dropping the tracked ticket and
// any close intent.
func (g *Gate) AbandonTicket() error {
	if g.state.Status != StatusActive {
		return InvalidStateErr("cannot abandon ticket from status %s", g.state.Status)
	}
	g.state.Ticket = nil
	g.state.TicketCloseIntent = nil
	g.state.Status = StatusIdle
	return nil
}

// RecordCloseIntent mutates only the close-intent field; it never changes
// status, so it has no error return.
func (g *Gate) RecordCloseIntent(intent TicketCloseIntent) {
	g.state.TicketCloseIntent = &intent
}

// ClearCloseIntent mutates only the close-intent field.
func (g *Gate) ClearCloseIntent() {
	g.state.TicketCloseIntent = nil
}

// HasCloseIntent reports whether a close intent is currently recorded.
func (g *Gate) HasCloseIntent() bool {
	return g.state.TicketCloseIntent != nil
}

// Ticket returns the currently tracked ticket, or nil.
func (g *Gate) Ticket() *TicketContext {
	return g.state.Ticket
}

// Block is the Pending->{Blocked,Idle} transition (and the idempotent
// Blocked->Blocked re-entry). It implements the circuit breaker described in
// spec.md §4.1: a fresh session id or an elapsed cooldown resets the
// breaker before the new block is counted; reaching MaxBlocks trips it and
// forces the gate back to Idle so the agent is never locked up. It returns
// whether the breaker is tripped after this call.
func (g *Gate) Block() (tripped bool, err error) {
	switch g.state.Status {
	case StatusBlocked:
		// Re-entry: idempotent, no counter bump, return current flag.
		return g.state.CircuitBreakerTripped, nil
	case StatusPending:
		reset := g.state.LastBlockedSessionID == nil || *g.state.LastBlockedSessionID != g.sessionID
		if !reset && g.state.LastBlockedAt != nil {
			elapsed := time.Since(*g.state.LastBlockedAt)
			if elapsed >= time.Duration(g.config.CooldownSeconds)*time.Second {
				reset = true
			}
		}
		if reset {
			g.resetBreaker()
		}

		g.state.BlockCount++
		sid := g.sessionID
		now := time.Now().UTC()
		g.state.LastBlockedSessionID = &sid
		g.state.LastBlockedAt = &now

		assert.Always(g.state.BlockCount >= 1, "block count stays positive after a block", nil)

		if g.state.BlockCount >= g.config.MaxBlocks {
			g.state.CircuitBreakerTripped = true
			g.state.Status = StatusIdle
			return true, nil
		}
		g.state.Status = StatusBlocked
		return false, nil
	default:
		return false, InvalidStateErr("cannot block from status %s", g.state.Status)
	}
}

func (g *Gate) resetBreaker() {
	g.state.BlockCount = 0
	g.state.CircuitBreakerTripped = false
	g.state.LastBlockedSessionID = nil
	g.state.LastBlockedAt = nil
}

// Skip transitions Pending|Blocked -> Skipped, resetting the circuit
// breaker in full. When linesChanged is nil, the gate's own cached diff
// size (if any) is carried into the recorded decision.
func (g *Gate) Skip(reason string, decider SkipDecider, linesChanged *int) error {
	if g.state.Status != StatusPending && g.state.Status != StatusBlocked {
		return InvalidStateErr("cannot skip from status %s", g.state.Status)
	}
	lc := linesChanged
	if lc == nil {
		lc = g.state.CachedDiffSize
	}
	g.state.Skip = &SkipDecision{
		Reason:       reason,
		Decider:      decider,
		LinesChanged: lc,
		DecidedAt:    time.Now().UTC(),
	}
	g.state.Status = StatusSkipped
	g.resetBreaker()
	assert.Always(g.state.BlockCount == 0 && !g.state.CircuitBreakerTripped, "breaker fairness holds after skip", nil)
	return nil
}

// CompleteReflection transitions Pending|Blocked -> Reflected, resetting
// the circuit breaker in full.
func (g *Gate) CompleteReflection(r ReflectionResult) error {
	if g.state.Status != StatusPending && g.state.Status != StatusBlocked {
		return InvalidStateErr("cannot complete reflection from status %s", g.state.Status)
	}
	g.state.Reflection = &r
	g.state.Status = StatusReflected
	g.resetBreaker()
	assert.Always(g.state.BlockCount == 0 && !g.state.CircuitBreakerTripped, "breaker fairness holds after reflection", nil)
	return nil
}

// ResetForNewTicket transitions a terminal state (Reflected or Skipped)
// back to Idle, clearing the reflection/skip artifacts and the previous
// ticket so a new ticket flow can begin.
func (g *Gate) ResetForNewTicket() error {
	if !g.state.Status.IsTerminal() {
		return InvalidStateErr("cannot reset for new ticket from status %s", g.state.Status)
	}
	g.state.Reflection = nil
	g.state.Skip = nil
	g.state.Ticket = nil
	g.state.TicketCloseIntent = nil
	g.state.Status = StatusIdle
	return nil
}

// EvaluateAutoSkip implements the auto-skip policy: it is evaluated, never
// applied, by the gate. A nil diffSize always yields nil, regardless of
// whether auto-skip is enabled — the gate never infers triviality from
// missing data.
func (g *Gate) EvaluateAutoSkip(diffSize *int) *string {
	if !g.config.AutoSkipEnabled {
		return nil
	}
	if g.config.AutoSkipDecider == "never" {
		return nil
	}
	if diffSize == nil {
		return nil
	}
	if *diffSize < g.config.AutoSkipThreshold {
		reason := fmt.Sprintf("auto: %d lines changed (threshold: %d)", *diffSize, g.config.AutoSkipThreshold)
		return &reason
	}
	return nil
}
