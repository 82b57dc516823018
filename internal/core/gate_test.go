package core

import (
	"testing"
	"time"
)

func newTestGate(sessionID string, cfg Config) (*GateState, *Gate) {
	s := NewGateState()
	return &s, NewGate(&s, cfg, sessionID)
}

func TestGate_FullTicketFlow(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())

	if err := g.DetectTicket(TicketContext{TicketID: "grove-123", Source: "detected"}); err != nil {
		t.Fatalf("DetectTicket: %v", err)
	}
	if state.Status != StatusActive {
		t.Fatalf("status = %s, want Active", state.Status)
	}

	if err := g.ConfirmTicketClose(); err != nil {
		t.Fatalf("ConfirmTicketClose: %v", err)
	}
	if state.Status != StatusPending {
		t.Fatalf("status = %s, want Pending", state.Status)
	}

	tripped, err := g.Block()
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if tripped {
		t.Fatal("first block should not trip breaker")
	}
	if state.Status != StatusBlocked {
		t.Fatalf("status = %s, want Blocked", state.Status)
	}

	if err := g.CompleteReflection(ReflectionResult{Accepted: 1, Backend: "file"}); err != nil {
		t.Fatalf("CompleteReflection: %v", err)
	}
	if state.Status != StatusReflected {
		t.Fatalf("status = %s, want Reflected", state.Status)
	}
	if state.BlockCount != 0 || state.CircuitBreakerTripped {
		t.Fatalf("breaker not reset after reflection: %+v", state)
	}
}

func TestGate_CircuitBreakerTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBlocks = 3
	state, g := newTestGate("S1", cfg)
	state.Status = StatusPending

	// Only a Pending->Blocked transition counts toward the breaker (re-entry
	// from Blocked is idempotent), so each counted block starts from Pending.
	for i := 0; i < 2; i++ {
		state.Status = StatusPending
		tripped, err := g.Block()
		if err != nil {
			t.Fatalf("Block[%d]: %v", i, err)
		}
		if tripped {
			t.Fatalf("Block[%d] should not trip yet", i)
		}
		if state.Status != StatusBlocked {
			t.Fatalf("Block[%d] status = %s, want Blocked", i, state.Status)
		}
	}

	state.Status = StatusPending
	tripped, err := g.Block()
	if err != nil {
		t.Fatalf("Block[2]: %v", err)
	}
	if !tripped {
		t.Fatal("third block should trip the breaker")
	}
	if state.Status != StatusIdle {
		t.Fatalf("status after trip = %s, want Idle", state.Status)
	}
	if state.BlockCount != 3 {
		t.Fatalf("block_count = %d, want 3", state.BlockCount)
	}
	if !state.CircuitBreakerTripped {
		t.Fatal("circuit_breaker_tripped should be true")
	}
}

func TestGate_BlockReentryIsIdempotent(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())
	state.Status = StatusBlocked
	state.BlockCount = 1
	state.CircuitBreakerTripped = false

	tripped, err := g.Block()
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if tripped {
		t.Fatal("re-entry should not trip")
	}
	if state.BlockCount != 1 {
		t.Fatalf("block_count changed on re-entry: %d", state.BlockCount)
	}
}

func TestGate_BreakerResetsOnDifferentSession(t *testing.T) {
	state, g := newTestGate("S2", DefaultConfig())
	state.Status = StatusPending
	prevSession := "S1"
	prevTime := time.Now().UTC()
	state.LastBlockedSessionID = &prevSession
	state.LastBlockedAt = &prevTime
	state.BlockCount = 2

	if _, err := g.Block(); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if state.BlockCount != 1 {
		t.Fatalf("block_count = %d, want 1 after cross-session reset", state.BlockCount)
	}
}

func TestGate_BreakerResetsAfterCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownSeconds = 1
	state, g := newTestGate("S1", cfg)
	state.Status = StatusPending
	same := "S1"
	old := time.Now().UTC().Add(-2 * time.Second)
	state.LastBlockedSessionID = &same
	state.LastBlockedAt = &old
	state.BlockCount = 2

	if _, err := g.Block(); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if state.BlockCount != 1 {
		t.Fatalf("block_count = %d, want 1 after cooldown reset", state.BlockCount)
	}
}

func TestGate_SkipResetsBreaker(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())
	state.Status = StatusBlocked
	state.BlockCount = 2
	state.CircuitBreakerTripped = false

	if err := g.Skip("trivial change", DeciderAgent, nil); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if state.Status != StatusSkipped {
		t.Fatalf("status = %s, want Skipped", state.Status)
	}
	if state.BlockCount != 0 {
		t.Fatalf("block_count = %d, want 0", state.BlockCount)
	}
}

func TestGate_SkipFromTerminalIsInvalid(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())
	state.Status = StatusReflected

	err := g.Skip("x", DeciderUser, nil)
	if !Is(err, KindInvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestGate_SecondTicketCloseResetsFromReflected(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())
	state.Status = StatusReflected
	state.Reflection = &ReflectionResult{Accepted: 1}

	if err := g.ResetForNewTicket(); err != nil {
		t.Fatalf("ResetForNewTicket: %v", err)
	}
	if state.Status != StatusIdle || state.Reflection != nil {
		t.Fatalf("state after reset: %+v", state)
	}

	if err := g.DetectTicket(TicketContext{TicketID: "grove-002", Source: "detected"}); err != nil {
		t.Fatalf("DetectTicket: %v", err)
	}
	if err := g.ConfirmTicketClose(); err != nil {
		t.Fatalf("ConfirmTicketClose: %v", err)
	}
	if state.Status != StatusPending {
		t.Fatalf("status = %s, want Pending", state.Status)
	}
	if state.Ticket == nil || state.Ticket.TicketID != "grove-002" {
		t.Fatalf("ticket = %+v, want grove-002", state.Ticket)
	}
}

func TestGate_ResetForNewTicketRequiresTerminal(t *testing.T) {
	state, g := newTestGate("S1", DefaultConfig())
	state.Status = StatusActive

	if err := g.ResetForNewTicket(); !Is(err, KindInvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestGate_EvaluateAutoSkip(t *testing.T) {
	enabled := DefaultConfig()
	enabled.AutoSkipEnabled = true
	enabled.AutoSkipThreshold = 10
	enabled.AutoSkipDecider = "agent"

	tests := []struct {
		name     string
		cfg      Config
		diffSize *int
		wantNil  bool
	}{
		{"disabled", DefaultConfig(), intPtr(5), true},
		{"never decider", func() Config { c := enabled; c.AutoSkipDecider = "never"; return c }(), intPtr(5), true},
		{"nil diff always none", enabled, nil, true},
		{"under threshold", enabled, intPtr(5), false},
		{"at threshold", enabled, intPtr(10), true},
		{"over threshold", enabled, intPtr(20), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state, g := newTestGate("S1", tc.cfg)
			_ = state
			got := g.EvaluateAutoSkip(tc.diffSize)
			if (got == nil) != tc.wantNil {
				t.Fatalf("EvaluateAutoSkip(%v) = %v, wantNil=%v", tc.diffSize, got, tc.wantNil)
			}
		})
	}
}

func intPtr(n int) *int { return &n }
