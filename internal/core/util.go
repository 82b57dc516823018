package core

import (
	"os"
	"strings"
)

// MaxFileSize is the default cap applied by ReadFileLimited: 10 MiB.
const MaxFileSize int64 = 10 * 1024 * 1024

// ReadFileLimited reads path into a string, refusing files larger than
// MaxFileSize. The size check happens against file metadata before any
// bytes are read, so peak memory is bounded regardless of outcome.
func ReadFileLimited(path string) (string, error) {
	return ReadFileWithLimit(path, MaxFileSize)
}

// ReadFileWithLimit is ReadFileLimited with a caller-supplied cap.
func ReadFileWithLimit(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", BackendErr("failed to read file metadata %s: %v", path, err)
	}

	size := info.Size()
	if size > maxSize {
		return "", BackendErr("file %s is too large (%d bytes, max %d bytes). Consider archiving old entries.", path, size, maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", BackendErr("failed to read %s: %v", path, err)
	}
	return string(data), nil
}

// TruncateUTF8 truncates s to at most max code points, never splitting a
// multi-byte rune. Strings at or under the limit are returned unchanged;
// longer strings are cut to max-3 code points with "..." appended, except
// that when max is 3 or less they are cut to max code points with no "...".
func TruncateUTF8(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// isValidIdentifierChar is the character class session/ticket identifiers
// must satisfy: alphanumeric, dash, or underscore.
func isValidIdentifierChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// ValidateIdentifier is the sole defense against path traversal in the file
// store: it rejects empty identifiers, identifiers containing "..", "/", or
// "\\", and identifiers with any character outside [A-Za-z0-9_-].
func ValidateIdentifier(id string) error {
	if id == "" {
		return ConfigErr("session id is empty")
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, "/\\") {
		return ConfigErr("session id %q contains path traversal characters", id)
	}
	for _, r := range id {
		if !isValidIdentifierChar(r) {
			return ConfigErr("session id %q must contain only alphanumeric, dash, underscore allowed", id)
		}
	}
	return nil
}
