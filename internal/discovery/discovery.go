// Package discovery defines the narrow collaborator interfaces the hook
// dispatcher uses to detect a project's ticketing system, its configured
// memory backend, and ticket-close commands inside tool invocations
// (spec.md §9's "external collaborators as interfaces" design note).
//
// Grounded on the teacher's internal/hooks/handler.go, which treats advice
// matching as a narrow, swappable predicate rather than a concrete
// dependency on any one ticketing system.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bivory/grove/internal/core"
)

// TicketDiscoverer detects whether cwd is inside a project tracked by some
// ticketing system, returning its context when found.
type TicketDiscoverer interface {
	DetectTicket(ctx context.Context, cwd string) (*core.TicketContext, bool, error)
}

// BackendDiscoverer detects which memory backend, if any, a project has
// configured (e.g. a ".grove/backend" marker file naming it).
type BackendDiscoverer interface {
	DetectBackend(ctx context.Context, cwd string) (string, bool, error)
}

// CloseMatcher recognizes ticket-close commands inside a tool invocation
// and extracts the ticket id they reference.
type CloseMatcher interface {
	Match(command string) (ticketID string, matched bool)
}

// FileMarkerTicketDiscoverer looks for well-known ticketing system marker
// files/directories at the project root: ".beads" (beads), ".tissue"
// (tissue), or ".jira" (a local jira cache directory some CLIs create).
// It never shells out and never fails — a missing marker is simply "not
// found", matching spec.md §4.2's session-start handler, which treats
// ticketing detection as best-effort context rather than a hard
// dependency.
type FileMarkerTicketDiscoverer struct{}

func NewFileMarkerTicketDiscoverer() FileMarkerTicketDiscoverer {
	return FileMarkerTicketDiscoverer{}
}

var ticketMarkers = []struct {
	marker string
	system string
}{
	{".beads", "beads"},
	{".tissue", "tissue"},
	{".jira", "jira"},
}

func (FileMarkerTicketDiscoverer) DetectTicket(_ context.Context, cwd string) (*core.TicketContext, bool, error) {
	for _, m := range ticketMarkers {
		if _, err := os.Stat(filepath.Join(cwd, m.marker)); err == nil {
			return &core.TicketContext{Source: m.system}, true, nil
		}
	}
	return nil, false, nil
}

// FileMarkerBackendDiscoverer reads the first line of ".grove/backend" in
// cwd, if present, as the configured memory backend name.
type FileMarkerBackendDiscoverer struct{}

func NewFileMarkerBackendDiscoverer() FileMarkerBackendDiscoverer {
	return FileMarkerBackendDiscoverer{}
}

func (FileMarkerBackendDiscoverer) DetectBackend(_ context.Context, cwd string) (string, bool, error) {
	path := filepath.Join(cwd, ".grove", "backend")
	content, err := core.ReadFileWithLimit(path, 4096)
	if err != nil {
		return "", false, nil
	}
	name := strings.TrimSpace(content)
	if name == "" {
		return "", false, nil
	}
	return name, true, nil
}

// DefaultCloseMatcher recognizes the two ticket-close command grammars
// named in spec.md §4.2: tissue's "status <id> closed" subcommand, and
// beads' "close <id>" / "complete <id>" subcommands. alfredjeanlab-beads
// was chosen as teacher partly because its own CLI exposes exactly this
// "bd close" / "bd complete" grammar.
type DefaultCloseMatcher struct{}

func NewDefaultCloseMatcher() DefaultCloseMatcher {
	return DefaultCloseMatcher{}
}

// Match reports whether command is a recognized ticket-close invocation.
// When the command keyword matches but no id token is present, it returns
// ("unknown", true) rather than failing to match — a close intent with an
// unresolved id is still worth recording.
func (DefaultCloseMatcher) Match(command string) (string, bool) {
	parts := strings.Fields(command)

	if len(parts) >= 2 && parts[0] == "tissue" && parts[1] == "status" {
		if len(parts) >= 4 && parts[3] == "closed" {
			return parts[2], true
		}
		return "", false
	}

	if len(parts) >= 2 && parts[0] == "beads" && (parts[1] == "close" || parts[1] == "complete") {
		if len(parts) >= 3 {
			return parts[2], true
		}
		return "unknown", true
	}

	return "", false
}
