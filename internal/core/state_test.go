package core

import (
	"encoding/json"
	"testing"
)

func TestGateStatus_TerminalAndRequiresReflection(t *testing.T) {
	tests := []struct {
		status             GateStatus
		wantTerminal       bool
		wantRequiresReflect bool
	}{
		{StatusIdle, false, false},
		{StatusActive, false, false},
		{StatusPending, false, true},
		{StatusBlocked, false, true},
		{StatusReflected, true, false},
		{StatusSkipped, true, false},
	}
	for _, tc := range tests {
		if got := tc.status.IsTerminal(); got != tc.wantTerminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tc.status, got, tc.wantTerminal)
		}
		if got := tc.status.RequiresReflection(); got != tc.wantRequiresReflect {
			t.Errorf("%s.RequiresReflection() = %v, want %v", tc.status, got, tc.wantRequiresReflect)
		}
		if tc.wantTerminal && tc.wantRequiresReflect {
			t.Errorf("%s cannot be both terminal and requiring reflection", tc.status)
		}
	}
}

func TestSessionState_JSONRoundTrip(t *testing.T) {
	s := NewSessionState("S1", "/proj", "/tmp/t.jsonl")
	s.AppendTrace(EventSessionStart, "")
	lines := 5
	s.Gate.CachedDiffSize = &lines
	s.Gate.Status = StatusPending

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out SessionState
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.ID != s.ID || out.CWD != s.CWD || out.Gate.Status != s.Gate.Status {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, s)
	}
	if len(out.Trace) != 1 || out.Trace[0].EventType != EventSessionStart {
		t.Fatalf("trace mismatch: %+v", out.Trace)
	}
	if out.Gate.CachedDiffSize == nil || *out.Gate.CachedDiffSize != 5 {
		t.Fatalf("cached_diff_size mismatch: %+v", out.Gate.CachedDiffSize)
	}
}

func TestEnumRoundTrips(t *testing.T) {
	type roundTripCase struct {
		name string
		in   any
		out  any
	}

	cases := []roundTripCase{
		{"GateStatus", StatusBlocked, new(GateStatus)},
		{"SkipDecider", DeciderAutoThreshold, new(SkipDecider)},
		{"InjectionOutcome", OutcomeCorrected, new(InjectionOutcome)},
		{"LearningCategory", CategorySecurity, new(LearningCategory)},
		{"LearningScope", ScopeGlobal, new(LearningScope)},
		{"Confidence", ConfidenceHigh, new(Confidence)},
		{"LearningStatus", LearningSuperseded, new(LearningStatus)},
		{"WriteGateCriterion", CriterionNonTrivialDiff, new(WriteGateCriterion)},
		{"EventType", EventCorrectionNotice, new(EventType)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, err := json.Marshal(c.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if err := json.Unmarshal(data, c.out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
		})
	}
}
