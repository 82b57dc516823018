package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFileWithLimit_Boundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boundary.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFileWithLimit(path, 100); err != nil {
		t.Fatalf("at cap should succeed: %v", err)
	}
	if _, err := ReadFileWithLimit(path, 99); err == nil {
		t.Fatal("one byte over cap should fail")
	} else if !strings.Contains(err.Error(), "too large") {
		t.Fatalf("error = %v, want \"too large\"", err)
	}
}

func TestReadFileLimited_Nonexistent(t *testing.T) {
	_, err := ReadFileLimited(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"exact length unchanged", "hello", 5, "hello"},
		{"shorter than max unchanged", "hi", 10, "hi"},
		{"over max truncates with ellipsis", "hello world", 8, "hello..."},
		{"multibyte 3-byte runes", strings.Repeat("中", 10), 5, strings.Repeat("中", 2) + "..."},
		{"multibyte 4-byte runes", strings.Repeat("\U0001F600", 10), 5, strings.Repeat("\U0001F600", 2) + "..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateUTF8(tc.in, tc.max)
			if got != tc.want {
				t.Errorf("TruncateUTF8(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if count := len([]rune(got)); count > tc.max {
				t.Errorf("TruncateUTF8(%q, %d) has %d runes, want <= %d", tc.in, tc.max, count, tc.max)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"path traversal dotdot", "../../etc/passwd", "path traversal"},
		{"path traversal slash", "a/b", "path traversal"},
		{"path traversal backslash", `a\b`, "path traversal"},
		{"bad char space", "session one", "alphanumeric, dash, underscore"},
		{"valid simple", "session-123", ""},
		{"valid underscore", "S1_abc", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentifier(tc.id)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateIdentifier(%q) = %v, want nil", tc.id, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("ValidateIdentifier(%q) = %v, want containing %q", tc.id, err, tc.wantErr)
			}
		})
	}
}
