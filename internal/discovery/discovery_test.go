package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCloseMatcher_Tissue(t *testing.T) {
	m := NewDefaultCloseMatcher()
	id, ok := m.Match("tissue status grove-123 closed")
	if !ok || id != "grove-123" {
		t.Fatalf("Match = (%q, %v), want (grove-123, true)", id, ok)
	}
}

func TestDefaultCloseMatcher_BeadsClose(t *testing.T) {
	m := NewDefaultCloseMatcher()
	id, ok := m.Match("beads close issue-456")
	if !ok || id != "issue-456" {
		t.Fatalf("Match = (%q, %v), want (issue-456, true)", id, ok)
	}
}

func TestDefaultCloseMatcher_BeadsComplete(t *testing.T) {
	m := NewDefaultCloseMatcher()
	id, ok := m.Match("beads complete task-789")
	if !ok || id != "task-789" {
		t.Fatalf("Match = (%q, %v), want (task-789, true)", id, ok)
	}
}

func TestDefaultCloseMatcher_BeadsCloseMissingID(t *testing.T) {
	m := NewDefaultCloseMatcher()
	id, ok := m.Match("beads close")
	if !ok || id != "unknown" {
		t.Fatalf("Match = (%q, %v), want (unknown, true)", id, ok)
	}
}

func TestDefaultCloseMatcher_NoMatch(t *testing.T) {
	m := NewDefaultCloseMatcher()
	if _, ok := m.Match("git status"); ok {
		t.Fatal("expected no match for git status")
	}
}

func TestFileMarkerTicketDiscoverer_DetectsBeads(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".beads"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	d := NewFileMarkerTicketDiscoverer()
	ctx, found, err := d.DetectTicket(context.Background(), dir)
	if err != nil {
		t.Fatalf("DetectTicket: %v", err)
	}
	if !found || ctx.Source != "beads" {
		t.Fatalf("DetectTicket = %+v, found=%v, want source=beads", ctx, found)
	}
}

func TestFileMarkerTicketDiscoverer_NoMarker(t *testing.T) {
	dir := t.TempDir()
	d := NewFileMarkerTicketDiscoverer()
	_, found, err := d.DetectTicket(context.Background(), dir)
	if err != nil {
		t.Fatalf("DetectTicket: %v", err)
	}
	if found {
		t.Fatal("expected no ticket system detected")
	}
}

func TestFileMarkerBackendDiscoverer_ReadsMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".grove"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".grove", "backend"), []byte("claude\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d := NewFileMarkerBackendDiscoverer()
	name, found, err := d.DetectBackend(context.Background(), dir)
	if err != nil {
		t.Fatalf("DetectBackend: %v", err)
	}
	if !found || name != "claude" {
		t.Fatalf("DetectBackend = (%q, %v), want (claude, true)", name, found)
	}
}

func TestFileMarkerBackendDiscoverer_NoMarker(t *testing.T) {
	dir := t.TempDir()
	d := NewFileMarkerBackendDiscoverer()
	_, found, err := d.DetectBackend(context.Background(), dir)
	if err != nil {
		t.Fatalf("DetectBackend: %v", err)
	}
	if found {
		t.Fatal("expected no backend detected")
	}
}
