package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bivory/grove/internal/core"
	"github.com/bivory/grove/internal/stats"
)

func TestRun_EmptyJournalIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.log")

	result, err := Run(context.Background(), Options{JournalPath: path, Bucket: "unused", Before: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Archived != 0 || result.Kept != 0 {
		t.Fatalf("result = %+v, want zero-value", result)
	}
}

func TestRun_NothingOlderThanCutoffIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.log")
	logger := stats.NewLogger(path)

	if err := logger.Append(stats.NewStatsEvent(stats.Skip{SessionID: "s1", Reason: "x", Decider: core.DeciderUser, ContextFiles: []string{}})); err != nil {
		t.Fatalf("Append: %v", err)
	}

	result, err := Run(context.Background(), Options{JournalPath: path, Bucket: "unused", Before: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Archived != 0 {
		t.Fatalf("result = %+v, want nothing archived", result)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("journal was truncated even though nothing was archived")
	}
}

func TestRewriteJournal_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := rewriteJournal(path, []string{"kept-1", "kept-2"}); err != nil {
		t.Fatalf("rewriteJournal: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "kept-1\nkept-2\n"
	if string(content) != want {
		t.Fatalf("content = %q, want %q", content, want)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: err=%v", err)
	}
}
